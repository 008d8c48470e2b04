// Package config loads the application configuration from a JSON or YAML
// file with optional environment overrides.
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

	"github.com/afetops/coordcore/core/scoring"
)

type Config struct {
	Audit     AuditConfig     `json:"audit"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Notifier  NotifierConfig  `json:"notifier"`
	Jobs      JobsConfig      `json:"jobs"`
	Metrics   MetricsConfig   `json:"metrics"`
	Scoring   scoring.Weights `json:"scoring"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

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
	// Optional environment overrides
	if err := k.Load(env.Provider("CC_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "cc_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Audit.SetDefaults()
	cfg.Broadcast.SetDefaults()
	cfg.Jobs.SetDefaults()
	cfg.Scoring.SetDefaults()
	cfg.Scheduler.SetDefaults()
	if err := cfg.Audit.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Jobs.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Notifier.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
