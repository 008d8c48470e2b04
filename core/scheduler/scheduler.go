// Package scheduler owns the cadence table for background aggregations. It
// ticks per job definition and enqueues one job per matching disaster;
// execution is entirely the worker's concern.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/afetops/coordcore/core/jobqueue"
	"github.com/afetops/coordcore/core/logger"
	"github.com/afetops/coordcore/core/model"
	"github.com/afetops/coordcore/core/store"
)

// Selector names which disasters a job covers.
type Selector string

const (
	// SelectActive covers disasters in active status only.
	SelectActive Selector = "active"
	// SelectOngoing covers active and controlled disasters.
	SelectOngoing Selector = "ongoing"
)

func (s Selector) matches(d model.Disaster) bool {
	switch s {
	case SelectActive:
		return d.Status == model.DisasterActive
	case SelectOngoing:
		return d.Ongoing()
	}
	return false
}

// JobDef is one scheduled aggregation: what to compute, how often, over
// which trailing window and for which disasters.
type JobDef struct {
	Type     jobqueue.JobType
	Every    time.Duration
	Window   time.Duration
	Selector Selector
}

// DefaultJobs is the standing cadence table.
func DefaultJobs() []JobDef {
	return []JobDef{
		{Type: jobqueue.JobDisasterStatistics, Every: 15 * time.Minute, Window: 24 * time.Hour, Selector: SelectOngoing},
		{Type: jobqueue.JobHelpRequestTrends, Every: 30 * time.Minute, Window: 24 * time.Hour, Selector: SelectOngoing},
		{Type: jobqueue.JobResourceAvailability, Every: time.Hour, Selector: SelectOngoing},
		{Type: jobqueue.JobTeamPerformance, Every: time.Hour, Window: 7 * 24 * time.Hour, Selector: SelectOngoing},
		{Type: jobqueue.JobLocationPriorities, Every: 2 * time.Hour, Selector: SelectActive},
	}
}

// Scheduler ticks the cadence table against the disaster registry.
type Scheduler struct {
	defs      []JobDef
	disasters store.DisasterStore
	queue     jobqueue.Enqueuer
	log       logger.Logger
	now       func() time.Time
}

// New builds a scheduler over the given job definitions.
func New(defs []JobDef, disasters store.DisasterStore, queue jobqueue.Enqueuer, log logger.Logger) (*Scheduler, error) {
	if disasters == nil {
		return nil, fmt.Errorf("nil disaster store")
	}
	if queue == nil {
		return nil, fmt.Errorf("nil enqueuer")
	}
	if log == nil {
		return nil, fmt.Errorf("nil logger")
	}
	for _, d := range defs {
		if !d.Type.Valid() {
			return nil, fmt.Errorf("unknown job type %q", d.Type)
		}
		if d.Every <= 0 {
			return nil, fmt.Errorf("job %s needs a positive cadence", d.Type)
		}
	}
	return &Scheduler{
		defs:      defs,
		disasters: disasters,
		queue:     queue,
		log:       log,
		now:       time.Now,
	}, nil
}

// SetClock overrides the time source, for tests.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// Run ticks every definition until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, def := range s.defs {
		wg.Add(1)
		go func(def JobDef) {
			defer wg.Done()
			ticker := time.NewTicker(def.Every)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					s.Tick(ctx, def)
				case <-ctx.Done():
					return
				}
			}
		}(def)
	}
	wg.Wait()
}

// Tick enqueues the definition's job for every matching disaster. Enqueue
// failures are logged and skipped; the next tick tries again.
func (s *Scheduler) Tick(ctx context.Context, def JobDef) {
	disasters, err := s.disasters.List(ctx)
	if err != nil {
		s.log.Errorf("list disasters for %s: %v", def.Type, err)
		return
	}
	for _, d := range disasters {
		if !def.Selector.matches(d) {
			continue
		}
		job := jobqueue.Job{
			Type:       def.Type,
			DisasterID: d.ID,
			Window:     def.Window,
			EnqueuedAt: s.now(),
		}
		if err := s.queue.EnqueueAggregation(ctx, job); err != nil {
			s.log.Errorf("enqueue %s for disaster %s: %v", def.Type, d.ID, err)
			continue
		}
		s.log.Debugf("enqueued %s for disaster %s", def.Type, d.ID)
	}
}
