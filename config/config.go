// Package config loads the gridmpc configuration from YAML or JSON files
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Project Project `json:"project"`
	System  System  `json:"system"`
	Prices  Prices  `json:"prices"`
	Solver  Solver  `json:"solver"`
	Data    Data    `json:"data"`
	Metrics Metrics `json:"metrics"`
	MQTT    MQTT    `json:"mqtt"`
	Store   Store   `json:"store"`
}

// Load reads the configuration file, applies GRIDMPC_-prefixed environment
// overrides and validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. GRIDMPC_SOLVER__TIMEOUT_SECONDS.
	if err := k.Load(env.Provider("GRIDMPC_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "gridmpc_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Project.SetDefaults()
	cfg.Solver.SetDefaults()
	cfg.Data.SetDefaults()
	cfg.Store.SetDefaults()
	if err := cfg.Project.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.System.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Solver.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
