package config

import (
	"fmt"
	"time"

	"github.com/afetops/coordcore/infra/jobs"
)

// JobsConfig defines the aggregation job queue, worker and result cache.
type JobsConfig struct {
	// Queue selects the transport: "mqtt" or "memory".
	Queue string        `json:"queue"`
	MQTT  jobs.MQTTConf `json:"mqtt"`
	// MaxRetries bounds attempts per job.
	MaxRetries int `json:"max_retries"`
	// BackoffMS is the base retry delay, doubled each attempt.
	BackoffMS int `json:"backoff_ms"`
	// Cache selects the result store: "redis" or "memory".
	Cache string         `json:"cache"`
	Redis jobs.RedisConf `json:"redis"`
}

// SetDefaults applies sane defaults.
func (c *JobsConfig) SetDefaults() {
	if c.Queue == "" {
		c.Queue = "memory"
	}
	if c.Cache == "" {
		c.Cache = "memory"
	}
}

// Validate checks the backend selections.
func (c JobsConfig) Validate() error {
	switch c.Queue {
	case "mqtt":
		if c.MQTT.Broker == "" {
			return fmt.Errorf("jobs mqtt broker is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown job queue %s", c.Queue)
	}
	switch c.Cache {
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("jobs redis addr is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown job cache %s", c.Cache)
	}
	return nil
}

// WorkerConf converts the retry settings into the worker configuration.
func (c JobsConfig) WorkerConf() jobs.WorkerConf {
	return jobs.WorkerConf{
		MaxRetries: c.MaxRetries,
		Backoff:    time.Duration(c.BackoffMS) * time.Millisecond,
	}
}
