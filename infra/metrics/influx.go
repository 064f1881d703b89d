package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/gridmpc/gridmpc/core/logger"
	"github.com/gridmpc/gridmpc/core/model"
)

// InfluxSink writes solve and commit events to an InfluxDB instance using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string, log logger.Logger) *InfluxSink {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      log,
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string, log logger.Logger) Sink {
	sink := NewInfluxSink(url, token, org, bucket, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			log.Errorf("influx health check error: %v", err)
		} else {
			log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return NopSink{}
	}
	return sink
}

// RecordSolve implements Sink.
func (s *InfluxSink) RecordSolve(backend string, d time.Duration, objective float64, solveErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("horizon_solve").
		AddTag("backend", backend).
		AddTag("ok", strconv.FormatBool(solveErr == nil)).
		AddField("duration_ms", d.Milliseconds()).
		AddField("objective_eur", round3(objective)).
		SetTime(time.Now())
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		s.log.Errorf("influx write: %v", err)
	}
}

// RecordCommit implements Sink.
func (s *InfluxSink) RecordCommit(row model.CommittedRow) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d := row.Decision
	p := write.NewPointWithMeasurement("committed_dispatch").
		AddTag("hour", strconv.Itoa(row.Hour)).
		AddField("p_import_mw", round3(d.ImportMW)).
		AddField("p_export_mw", round3(d.ExportMW)).
		AddField("p_ely_mw", round3(d.ElyMW)).
		AddField("p_fc_mw", round3(d.FCMW)).
		AddField("p_dg_mw", round3(d.DGMW)).
		AddField("p_curt_mw", round3(d.CurtailMW)).
		AddField("soc_mwh", round3(d.SOCMWh)).
		AddField("objective_eur", round3(row.Objective)).
		SetTime(time.Now())
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		s.log.Errorf("influx write: %v", err)
	}
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
