// Package notify defines the contract with the external notification
// service. Durable delivery (email, SMS, push) happens there; the core only
// enqueues and never awaits the outcome.
package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/model"
)

// Channel is a delivery channel handled by the notification service.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

// Notification targets either explicit users or whole roles.
type Notification struct {
	UserIDs  []uuid.UUID  `json:"user_ids,omitempty"`
	Roles    []model.Role `json:"roles,omitempty"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Priority model.Level  `json:"priority"`
	Channels []Channel    `json:"channels"`
}

// Dispatcher enqueues notifications fire-and-forget. Implementations must
// not block the dispatch path; failures are logged, not propagated to the
// operator.
type Dispatcher interface {
	Enqueue(ctx context.Context, n Notification) error
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) Enqueue(context.Context, Notification) error { return nil }
