package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/afetops/coordcore/core/aggregate"
	"github.com/afetops/coordcore/core/events"
	"github.com/afetops/coordcore/core/jobqueue"
	"github.com/afetops/coordcore/core/scoring"
	"github.com/afetops/coordcore/core/store"
	"github.com/afetops/coordcore/infra/logger"
	"github.com/afetops/coordcore/internal/eventbus"
)

// WorkerConf bounds the retry behavior of one job execution.
type WorkerConf struct {
	MaxRetries int           `json:"max_retries" koanf:"max_retries"`
	Backoff    time.Duration `json:"backoff" koanf:"backoff"`
}

const (
	defaultWorkerRetries = 3
	defaultWorkerBackoff = time.Second
)

// Stores groups the read-side stores the worker snapshots from.
type Stores struct {
	Disasters        store.DisasterStore
	Requests         store.RequestStore
	Teams            store.TeamStore
	Locations        store.LocationStore
	Resources        store.ResourceStore
	ResourceRequests store.ResourceRequestStore
}

// Worker consumes aggregation jobs, computes the summaries over a fresh
// store snapshot and publishes the results to the cache. Failures retry
// with exponential backoff and never touch the request or dispatch paths.
type Worker struct {
	queue   jobqueue.Queue
	stores  Stores
	cache   ResultCache
	scorer  scoring.Scorer
	evts    eventbus.EventBus
	log     logger.Logger
	retries int
	backoff time.Duration
	clock   func() time.Time
}

func NewWorker(queue jobqueue.Queue, stores Stores, cache ResultCache, scorer scoring.Scorer, evts eventbus.EventBus, conf WorkerConf, log logger.Logger) (*Worker, error) {
	if queue == nil {
		return nil, fmt.Errorf("jobs: queue is required")
	}
	if stores.Disasters == nil || stores.Requests == nil || stores.Teams == nil ||
		stores.Locations == nil || stores.Resources == nil || stores.ResourceRequests == nil {
		return nil, fmt.Errorf("jobs: all stores are required")
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if conf.MaxRetries <= 0 {
		conf.MaxRetries = defaultWorkerRetries
	}
	if conf.Backoff <= 0 {
		conf.Backoff = defaultWorkerBackoff
	}
	return &Worker{
		queue:   queue,
		stores:  stores,
		cache:   cache,
		scorer:  scorer,
		evts:    evts,
		log:     log,
		retries: conf.MaxRetries,
		backoff: conf.Backoff,
		clock:   time.Now,
	}, nil
}

// SetClock overrides the time source. Intended for tests.
func (w *Worker) SetClock(clock func() time.Time) { w.clock = clock }

// Run consumes the queue until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	return w.queue.Run(ctx, w.Handle)
}

// Handle executes one job with bounded retries.
func (w *Worker) Handle(ctx context.Context, job jobqueue.Job) error {
	var lastErr error
	backoff := w.backoff
	for attempt := 1; attempt <= w.retries; attempt++ {
		if attempt > 1 {
			w.publish(events.JobEvent{JobType: string(job.Type), DisasterID: job.DisasterID, Action: "retried", Attempt: attempt})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		w.publish(events.JobEvent{JobType: string(job.Type), DisasterID: job.DisasterID, Action: "started", Attempt: attempt})
		start := w.clock()
		lastErr = w.run(ctx, job)
		if lastErr == nil {
			jobDuration.WithLabelValues(string(job.Type)).Observe(w.clock().Sub(start).Seconds())
			jobsProcessed.WithLabelValues(string(job.Type), "success").Inc()
			w.publish(events.JobEvent{JobType: string(job.Type), DisasterID: job.DisasterID, Action: "completed", Attempt: attempt})
			return nil
		}
		w.log.Warnf("job %s for disaster %s attempt %d/%d failed: %v",
			job.Type, job.DisasterID, attempt, w.retries, lastErr)
	}
	jobsProcessed.WithLabelValues(string(job.Type), "failure").Inc()
	w.publish(events.JobEvent{JobType: string(job.Type), DisasterID: job.DisasterID, Action: "failed", Attempt: w.retries, Err: lastErr})
	return lastErr
}

func (w *Worker) run(ctx context.Context, job jobqueue.Job) error {
	snap, err := w.snapshot(ctx, job)
	if err != nil {
		return err
	}
	key := ResultKey(job.Type, job.DisasterID, job.Window)
	switch job.Type {
	case jobqueue.JobDisasterStatistics:
		return w.cache.Set(ctx, key, aggregate.DisasterStatistics(snap, job.Window))
	case jobqueue.JobResourceAvailability:
		return w.cache.Set(ctx, key, aggregate.ResourceAvailability(snap))
	case jobqueue.JobTeamPerformance:
		return w.cache.Set(ctx, key, aggregate.TeamPerformance(snap, job.Window))
	case jobqueue.JobHelpRequestTrends:
		return w.cache.Set(ctx, key, aggregate.HelpRequestTrends(snap, job.Window))
	case jobqueue.JobLocationPriorities:
		return w.cache.Set(ctx, key, aggregate.LocationPriorities(snap, w.scorer))
	default:
		return fmt.Errorf("jobs: unknown job type %q", job.Type)
	}
}

func (w *Worker) snapshot(ctx context.Context, job jobqueue.Job) (aggregate.Snapshot, error) {
	disaster, err := w.stores.Disasters.Get(ctx, job.DisasterID)
	if err != nil {
		return aggregate.Snapshot{}, fmt.Errorf("load disaster: %w", err)
	}
	requests, err := w.stores.Requests.ListByDisaster(ctx, job.DisasterID)
	if err != nil {
		return aggregate.Snapshot{}, fmt.Errorf("load requests: %w", err)
	}
	teams, err := w.stores.Teams.ListByDisaster(ctx, job.DisasterID)
	if err != nil {
		return aggregate.Snapshot{}, fmt.Errorf("load teams: %w", err)
	}
	locations, err := w.stores.Locations.ListByDisaster(ctx, job.DisasterID)
	if err != nil {
		return aggregate.Snapshot{}, fmt.Errorf("load locations: %w", err)
	}
	resources, err := w.stores.Resources.List(ctx)
	if err != nil {
		return aggregate.Snapshot{}, fmt.Errorf("load resources: %w", err)
	}
	resourceRequests, err := w.stores.ResourceRequests.ListByDisaster(ctx, job.DisasterID)
	if err != nil {
		return aggregate.Snapshot{}, fmt.Errorf("load resource requests: %w", err)
	}
	return aggregate.Snapshot{
		Now:              w.clock(),
		Disaster:         disaster,
		Requests:         requests,
		Teams:            teams,
		Locations:        locations,
		Resources:        resources,
		ResourceRequests: resourceRequests,
	}, nil
}

func (w *Worker) publish(e eventbus.Event) {
	if w.evts != nil {
		w.evts.Publish(e)
	}
}
