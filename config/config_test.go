package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/afetops/coordcore/core/jobqueue"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `audit:
  backend: "sqlite"
  path: "audit.db"
broadcast:
  addr: ":9000"
  buffer: 64
notifier:
  enabled: true
  endpoint: "https://notify.example.com/v1/send"
  auth:
    client_id: "id"
    client_secret: "secret"
    auth_url: "https://auth.example.com/token"
jobs:
  queue: "mqtt"
  mqtt:
    broker: "tcp://localhost:1883"
    client_id: "coord"
  max_retries: 4
  backoff_ms: 100
  cache: "redis"
  redis:
    addr: "localhost:6379"
metrics:
  sinks:
    - type: "nop"
  prometheus_addr: ":2112"
scoring:
  priority_critical: 50
scheduler:
  cadence_minutes:
    disaster_statistics: 5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"audit.backend", cfg.Audit.Backend, "sqlite"},
		{"audit.path", cfg.Audit.Path, "audit.db"},
		{"broadcast.addr", cfg.Broadcast.Addr, ":9000"},
		{"broadcast.buffer", cfg.Broadcast.Buffer, 64},
		{"notifier.endpoint", cfg.Notifier.Endpoint, "https://notify.example.com/v1/send"},
		{"notifier.auth_url", cfg.Notifier.Auth.AuthURL, "https://auth.example.com/token"},
		{"jobs.queue", cfg.Jobs.Queue, "mqtt"},
		{"jobs.broker", cfg.Jobs.MQTT.Broker, "tcp://localhost:1883"},
		{"jobs.cache", cfg.Jobs.Cache, "redis"},
		{"jobs.redis", cfg.Jobs.Redis.Addr, "localhost:6379"},
		{"metrics.sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"metrics.prometheus", cfg.Metrics.PrometheusAddr, ":2112"},
		{"scoring.critical", cfg.Scoring.PriorityCritical, 50.0},
		// Untouched weight groups keep the defaults.
		{"scoring.max_score", cfg.Scoring.MaxScore, 100.0},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}

	if got := cfg.Jobs.WorkerConf().Backoff; got != 100*time.Millisecond {
		t.Errorf("worker backoff: got %v", got)
	}
	jobs := cfg.Scheduler.Jobs()
	for _, def := range jobs {
		if def.Type == jobqueue.JobDisasterStatistics && def.Every != 5*time.Minute {
			t.Errorf("cadence override not applied: %v", def.Every)
		}
		if def.Type == jobqueue.JobTeamPerformance && def.Every != time.Hour {
			t.Errorf("default cadence changed: %v", def.Every)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{"audit": {"backend": "jsonl", "path": "audit.log"}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CC_AUDIT__PATH", "override.log")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Audit.Path != "override.log" {
		t.Errorf("env override not applied: %s", cfg.Audit.Path)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		data string
	}{
		{"bad audit backend", `{"audit": {"backend": "mongo"}}`},
		{"mqtt without broker", `{"jobs": {"queue": "mqtt"}}`},
		{"enabled notifier without endpoint", `{"notifier": {"enabled": true}}`},
		{"unknown cadence job", `{"scheduler": {"cadence_minutes": {"bogus": 5}}}`},
	}
	for _, c := range cases {
		path := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(path, []byte(c.data), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	if _, err := Load("config.toml"); err == nil {
		t.Fatal("expected error")
	}
}
