package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afetops/coordcore/core/aggregate"
	"github.com/afetops/coordcore/core/events"
	"github.com/afetops/coordcore/core/jobqueue"
	"github.com/afetops/coordcore/core/model"
	"github.com/afetops/coordcore/core/scoring"
	"github.com/afetops/coordcore/core/store"
	"github.com/afetops/coordcore/infra/logger"
	"github.com/afetops/coordcore/internal/eventbus"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func seedStores(t *testing.T) (*store.Memory, model.Disaster) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	d := model.Disaster{
		ID:        uuid.New(),
		Type:      model.DisasterEarthquake,
		Name:      "Marmara earthquake",
		Severity:  model.LevelCritical,
		Status:    model.DisasterActive,
		StartDate: testNow.Add(-48 * time.Hour),
		CreatedAt: testNow.Add(-48 * time.Hour),
		UpdatedAt: testNow,
	}
	require.NoError(t, mem.Create(ctx, d))
	require.NoError(t, mem.Requests().Create(ctx, model.HelpRequest{
		ID:          uuid.New(),
		DisasterID:  d.ID,
		RequestType: model.RequestRescue,
		Urgency:     model.LevelCritical,
		Status:      model.RequestPending,
		Requester:   model.RequesterContact{Name: "Ayse Demir", Phone: "+905551112233"},
		Description: "Collapsed building, voices heard from the rubble",
		CreatedAt:   testNow.Add(-time.Hour),
	}))
	return mem, d
}

func workerStores(mem *store.Memory) Stores {
	return Stores{
		Disasters:        mem,
		Requests:         mem.Requests(),
		Teams:            mem.Teams(),
		Locations:        mem.Locations(),
		Resources:        mem.Resources(),
		ResourceRequests: mem.ResourceRequests(),
	}
}

func newWorker(t *testing.T, mem *store.Memory, cache ResultCache, evts eventbus.EventBus, conf WorkerConf) *Worker {
	t.Helper()
	w, err := NewWorker(NewMemoryQueue(8), workerStores(mem), cache, scoring.New(scoring.DefaultWeights()), evts, conf, logger.NopLogger{})
	require.NoError(t, err)
	w.SetClock(func() time.Time { return testNow })
	return w
}

func TestWorkerComputesAndCachesStatistics(t *testing.T) {
	mem, d := seedStores(t)
	cache := NewMemoryCache()
	w := newWorker(t, mem, cache, nil, WorkerConf{})

	job := jobqueue.Job{Type: jobqueue.JobDisasterStatistics, DisasterID: d.ID, Window: 24 * time.Hour}
	require.NoError(t, w.Handle(context.Background(), job))

	var stats aggregate.DisasterStats
	require.NoError(t, cache.Get(context.Background(), ResultKey(job.Type, d.ID, job.Window), &stats))
	assert.Equal(t, d.ID, stats.DisasterID)
	assert.Equal(t, 1, stats.Requests.Total)
	assert.Equal(t, 1, stats.Requests.ByStatus[model.RequestPending])
}

func TestWorkerHandlesEveryJobType(t *testing.T) {
	mem, d := seedStores(t)
	cache := NewMemoryCache()
	w := newWorker(t, mem, cache, nil, WorkerConf{})

	types := []jobqueue.JobType{
		jobqueue.JobDisasterStatistics,
		jobqueue.JobResourceAvailability,
		jobqueue.JobTeamPerformance,
		jobqueue.JobHelpRequestTrends,
		jobqueue.JobLocationPriorities,
	}
	for _, jt := range types {
		job := jobqueue.Job{Type: jt, DisasterID: d.ID, Window: time.Hour}
		require.NoError(t, w.Handle(context.Background(), job), "type %s", jt)
		var out any
		require.NoError(t, cache.Get(context.Background(), ResultKey(jt, d.ID, time.Hour), &out), "type %s", jt)
	}
}

func TestWorkerUnknownDisasterFailsAfterRetries(t *testing.T) {
	mem, _ := seedStores(t)
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()
	w := newWorker(t, mem, NewMemoryCache(), bus, WorkerConf{MaxRetries: 2, Backoff: time.Millisecond})

	job := jobqueue.Job{Type: jobqueue.JobDisasterStatistics, DisasterID: uuid.New(), Window: time.Hour}
	err := w.Handle(context.Background(), job)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	var actions []string
	for len(sub) > 0 {
		if ev, ok := (<-sub).(events.JobEvent); ok {
			actions = append(actions, ev.Action)
		}
	}
	assert.Equal(t, []string{"started", "retried", "started", "failed"}, actions)
}

type failingCache struct {
	mu       sync.Mutex
	failures int
	inner    *MemoryCache
}

func (c *failingCache) Set(ctx context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("transient cache error")
	}
	return c.inner.Set(ctx, key, value)
}

func (c *failingCache) Get(ctx context.Context, key string, dest any) error {
	return c.inner.Get(ctx, key, dest)
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	mem, d := seedStores(t)
	cache := &failingCache{failures: 1, inner: NewMemoryCache()}
	w := newWorker(t, mem, cache, nil, WorkerConf{MaxRetries: 3, Backoff: time.Millisecond})

	job := jobqueue.Job{Type: jobqueue.JobHelpRequestTrends, DisasterID: d.ID, Window: 30 * time.Minute}
	require.NoError(t, w.Handle(context.Background(), job))

	var trends aggregate.Trends
	require.NoError(t, cache.Get(context.Background(), ResultKey(job.Type, d.ID, job.Window), &trends))
}

func TestWorkerRunConsumesQueue(t *testing.T) {
	mem, d := seedStores(t)
	cache := NewMemoryCache()
	queue := NewMemoryQueue(8)
	w, err := NewWorker(queue, workerStores(mem), cache, scoring.New(scoring.DefaultWeights()), nil, WorkerConf{}, logger.NopLogger{})
	require.NoError(t, err)
	w.SetClock(func() time.Time { return testNow })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	job := jobqueue.Job{Type: jobqueue.JobDisasterStatistics, DisasterID: d.ID, Window: time.Hour}
	require.NoError(t, queue.EnqueueAggregation(ctx, job))

	key := ResultKey(job.Type, d.ID, job.Window)
	require.Eventually(t, func() bool {
		var stats aggregate.DisasterStats
		return cache.Get(context.Background(), key, &stats) == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestMemoryCacheMiss(t *testing.T) {
	cache := NewMemoryCache()
	var out int
	err := cache.Get(context.Background(), "absent", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
