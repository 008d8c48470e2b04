// Package notify implements the notification dispatcher against the
// external delivery service over HTTP.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/afetops/coordcore/auth"
	"github.com/afetops/coordcore/core/logger"
	corenotify "github.com/afetops/coordcore/core/notify"
)

// Conf configures the HTTP dispatcher.
type Conf struct {
	// Endpoint is the notification service URL notifications are posted to.
	Endpoint string `json:"endpoint" koanf:"endpoint"`
	// Auth holds the client credentials for the notification service.
	Auth auth.Conf `json:"auth" koanf:"auth"`
	// MaxRetries bounds delivery attempts per notification.
	MaxRetries int `json:"max_retries" koanf:"max_retries"`
	// RetryBackoff is the base delay between attempts, doubled each retry.
	RetryBackoff time.Duration `json:"retry_backoff" koanf:"retry_backoff"`
	// Timeout applies to each HTTP attempt.
	Timeout time.Duration `json:"timeout" koanf:"timeout"`
}

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 500 * time.Millisecond
	defaultTimeout      = 5 * time.Second
)

// HTTPDispatcher posts notifications to the external service. Enqueue returns
// immediately; delivery and retries run in the background so the dispatch
// path never waits on the notification service.
type HTTPDispatcher struct {
	endpoint   string
	cred       *auth.ClientCred
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	log        logger.Logger

	wg sync.WaitGroup
}

// NewHTTPDispatcher builds a dispatcher from conf, applying defaults for
// unset retry and timeout values.
func NewHTTPDispatcher(conf Conf, log logger.Logger) (*HTTPDispatcher, error) {
	if conf.Endpoint == "" {
		return nil, fmt.Errorf("notify: endpoint is required")
	}
	if conf.MaxRetries <= 0 {
		conf.MaxRetries = defaultMaxRetries
	}
	if conf.RetryBackoff <= 0 {
		conf.RetryBackoff = defaultRetryBackoff
	}
	if conf.Timeout <= 0 {
		conf.Timeout = defaultTimeout
	}
	return &HTTPDispatcher{
		endpoint:   conf.Endpoint,
		cred:       auth.NewClientCred(conf.Auth),
		client:     &http.Client{Timeout: conf.Timeout},
		maxRetries: conf.MaxRetries,
		backoff:    conf.RetryBackoff,
		log:        log,
	}, nil
}

// Enqueue schedules the notification for delivery and returns without
// waiting for the outcome. Delivery failures are logged after the last
// attempt.
func (d *HTTPDispatcher) Enqueue(ctx context.Context, n corenotify.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: marshal notification: %w", err)
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.deliver(ctx, body); err != nil {
			d.log.Errorf("notification delivery failed: %v", err)
		}
	}()
	return nil
}

func (d *HTTPDispatcher) deliver(ctx context.Context, body []byte) error {
	var lastErr error
	backoff := d.backoff
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		lastErr = d.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		d.log.Warnf("notification attempt %d/%d failed: %v", attempt, d.maxRetries, lastErr)
	}
	return lastErr
}

func (d *HTTPDispatcher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := d.cred.SetAuthHeader(req); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned %s", resp.Status)
	}
	return nil
}

// Flush waits for all in-flight deliveries to finish. Intended for shutdown
// and tests.
func (d *HTTPDispatcher) Flush() {
	d.wg.Wait()
}
