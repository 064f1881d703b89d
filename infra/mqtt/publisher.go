// Package mqtt publishes committed dispatch setpoints so downstream unit
// controllers can act on them.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/gridmpc/gridmpc/core/model"
)

// Publisher sends the committed decision of one hour to the field layer.
type Publisher interface {
	PublishSetpoints(row model.CommittedRow) error
	Close()
}

// PahoPublisher publishes JSON setpoints over MQTT.
type PahoPublisher struct {
	client paho.Client
	prefix string
}

// NewPahoPublisher connects to the broker and returns a publisher rooted at
// the given topic prefix.
func NewPahoPublisher(broker, clientID, username, password, topicPrefix string) (*PahoPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}
	client := paho.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	if topicPrefix == "" {
		topicPrefix = "gridmpc"
	}
	return &PahoPublisher{client: client, prefix: topicPrefix}, nil
}

// PublishSetpoints implements Publisher. The whole committed row goes to
// <prefix>/dispatch and each unit setpoint to <prefix>/setpoint/<unit>.
func (p *PahoPublisher) PublishSetpoints(row model.CommittedRow) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}
	if err := p.publish(fmt.Sprintf("%s/dispatch", p.prefix), payload); err != nil {
		return err
	}
	d := row.Decision
	units := map[string]float64{
		"import":       d.ImportMW,
		"export":       d.ExportMW,
		"electrolyzer": d.ElyMW,
		"fuel_cell":    d.FCMW,
		"diesel":       d.DGMW,
	}
	for unit, mw := range units {
		msg, err := json.Marshal(map[string]any{"hour": row.Hour, "power_mw": mw})
		if err != nil {
			return err
		}
		if err := p.publish(fmt.Sprintf("%s/setpoint/%s", p.prefix, unit), msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *PahoPublisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, false, payload)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (p *PahoPublisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// MockPublisher records published rows for tests.
type MockPublisher struct {
	Rows    []model.CommittedRow
	FailErr error
}

// PublishSetpoints implements Publisher.
func (m *MockPublisher) PublishSetpoints(row model.CommittedRow) error {
	if m.FailErr != nil {
		return m.FailErr
	}
	m.Rows = append(m.Rows, row)
	return nil
}

// Close implements Publisher.
func (m *MockPublisher) Close() {}
