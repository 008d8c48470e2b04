package notify

import (
	"context"
	"sync"

	corenotify "github.com/afetops/coordcore/core/notify"
)

// Memory records notifications in memory. Used in tests and in setups
// without a notification service.
type Memory struct {
	mu   sync.Mutex
	sent []corenotify.Notification
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Enqueue(_ context.Context, n corenotify.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

// Sent returns a copy of all recorded notifications.
func (m *Memory) Sent() []corenotify.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]corenotify.Notification, len(m.sent))
	copy(out, m.sent)
	return out
}
