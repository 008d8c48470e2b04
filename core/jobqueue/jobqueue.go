// Package jobqueue defines the contract between the scheduler and the
// background worker pool. Jobs travel through a durable queue; the dispatch
// path only enqueues and is never blocked by job execution.
package jobqueue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobType names an aggregation recomputation.
type JobType string

const (
	JobDisasterStatistics   JobType = "disaster_statistics"
	JobResourceAvailability JobType = "resource_availability"
	JobTeamPerformance      JobType = "team_performance"
	JobHelpRequestTrends    JobType = "help_request_trends"
	JobLocationPriorities   JobType = "location_priorities"
)

// Valid reports whether the job type is known.
func (t JobType) Valid() bool {
	switch t {
	case JobDisasterStatistics, JobResourceAvailability, JobTeamPerformance,
		JobHelpRequestTrends, JobLocationPriorities:
		return true
	}
	return false
}

// Job is one scheduled aggregation over a disaster and time window.
type Job struct {
	Type       JobType       `json:"type"`
	DisasterID uuid.UUID     `json:"disaster_id"`
	Window     time.Duration `json:"window"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
}

// Enqueuer submits jobs to the queue, fire-and-forget.
type Enqueuer interface {
	EnqueueAggregation(ctx context.Context, job Job) error
}

// Queue is the consumer side: Run delivers jobs to the handler until the
// context is canceled. Redelivery on handler error is the worker's concern,
// not the queue's.
type Queue interface {
	Enqueuer
	Run(ctx context.Context, handle func(context.Context, Job) error) error
	Close() error
}
