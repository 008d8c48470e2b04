package config

import "github.com/afetops/coordcore/core/factory"

// MetricsConfig defines the metrics sinks and the Prometheus endpoint.
type MetricsConfig struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr is the /metrics listen address; empty disables the
	// server.
	PrometheusAddr string `json:"prometheus_addr"`
}
