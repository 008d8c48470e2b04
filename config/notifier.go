package config

import (
	"fmt"
	"time"

	"github.com/afetops/coordcore/auth"
	"github.com/afetops/coordcore/infra/notify"
)

// NotifierConfig defines the external notification service connection. A
// disabled notifier drops all notifications.
type NotifierConfig struct {
	Enabled        bool      `json:"enabled"`
	Endpoint       string    `json:"endpoint"`
	Auth           auth.Conf `json:"auth"`
	MaxRetries     int       `json:"max_retries"`
	RetryBackoffMS int       `json:"retry_backoff_ms"`
	TimeoutSeconds int       `json:"timeout_seconds"`
}

// Validate checks mandatory fields.
func (c NotifierConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("notifier endpoint is required")
	}
	if c.Auth.AuthURL == "" {
		return fmt.Errorf("notifier auth_url is required")
	}
	return nil
}

// ToConf converts the section into the dispatcher configuration.
func (c NotifierConfig) ToConf() notify.Conf {
	return notify.Conf{
		Endpoint:     c.Endpoint,
		Auth:         c.Auth,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: time.Duration(c.RetryBackoffMS) * time.Millisecond,
		Timeout:      time.Duration(c.TimeoutSeconds) * time.Second,
	}
}
