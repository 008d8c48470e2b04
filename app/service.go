// Package app assembles the coordination service from configuration: stores,
// websocket hub, request and coordination services, auto-dispatch, scheduler
// and the aggregation worker.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/afetops/coordcore/config"
	"github.com/afetops/coordcore/core/audit"
	"github.com/afetops/coordcore/core/coord"
	"github.com/afetops/coordcore/core/dispatch"
	"github.com/afetops/coordcore/core/jobqueue"
	coremetrics "github.com/afetops/coordcore/core/metrics"
	"github.com/afetops/coordcore/core/model"
	"github.com/afetops/coordcore/core/notify"
	"github.com/afetops/coordcore/core/request"
	"github.com/afetops/coordcore/core/scheduler"
	"github.com/afetops/coordcore/core/scoring"
	"github.com/afetops/coordcore/core/store"
	infrabroadcast "github.com/afetops/coordcore/infra/broadcast"
	"github.com/afetops/coordcore/infra/jobs"
	"github.com/afetops/coordcore/infra/logger"
	"github.com/afetops/coordcore/infra/metrics"
	infranotify "github.com/afetops/coordcore/infra/notify"
	"github.com/afetops/coordcore/internal/eventbus"
)

// Service orchestrates the coordination core.
type Service struct {
	Store     *store.Memory
	Hub       *infrabroadcast.Hub
	Requests  *request.Service
	Coord     *coord.Service
	Dispatch  *dispatch.Manager
	Scheduler *scheduler.Scheduler
	Worker    *jobs.Worker
	Cache     jobs.ResultCache

	queue    jobqueue.Queue
	trail    audit.Store
	bus      eventbus.EventBus
	log      logger.Logger
	wsAddr   string
	auth     infrabroadcast.AuthFunc
	promAddr string
	pending  chan uuid.UUID
}

// New builds a Service from the configuration. The auth function
// authenticates websocket connections; dispatchActor is the identity
// recorded on automatic assignments.
func New(cfg *config.Config, auth infrabroadcast.AuthFunc, dispatchActor model.Actor) (*Service, error) {
	log := logger.New("service")
	mem := store.NewMemory()
	bus := eventbus.New()
	hub := infrabroadcast.NewHub(logger.New("hub"), cfg.Broadcast.Buffer)

	trail, err := newAuditStore(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}

	var notifier notify.Dispatcher = notify.Nop{}
	if cfg.Notifier.Enabled {
		notifier, err = infranotify.NewHTTPDispatcher(cfg.Notifier.ToConf(), logger.New("notifier"))
		if err != nil {
			return nil, fmt.Errorf("notifier: %w", err)
		}
	}

	reqSvc, err := request.NewService(mem, mem.Locations(), mem.Teams(), mem.Requests(), hub, notifier, trail, logger.New("requests"))
	if err != nil {
		return nil, fmt.Errorf("request service: %w", err)
	}
	coordSvc, err := coord.NewService(mem, mem.Locations(), mem.Teams(), hub, notifier, bus, logger.New("coord"))
	if err != nil {
		return nil, fmt.Errorf("coord service: %w", err)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	manager, err := dispatch.NewManager(reqSvc, mem.Requests(), mem.Teams(), mem.Locations(), sink, bus, dispatchActor, logger.New("dispatch"))
	if err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}

	queue, err := newQueue(cfg.Jobs)
	if err != nil {
		return nil, fmt.Errorf("job queue: %w", err)
	}
	sched, err := scheduler.New(cfg.Scheduler.Jobs(), mem, queue, logger.New("scheduler"))
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	cache := newCache(cfg.Jobs)
	if cfg.Metrics.PrometheusAddr != "" {
		request.MustRegisterMetrics(prometheus.DefaultRegisterer)
		dispatch.MustRegisterMetrics(prometheus.DefaultRegisterer)
		jobs.MustRegisterMetrics(prometheus.DefaultRegisterer)
		metrics.MustRegisterEventMetrics(prometheus.DefaultRegisterer)
	}

	worker, err := jobs.NewWorker(queue, jobs.Stores{
		Disasters:        mem,
		Requests:         mem.Requests(),
		Teams:            mem.Teams(),
		Locations:        mem.Locations(),
		Resources:        mem.Resources(),
		ResourceRequests: mem.ResourceRequests(),
	}, cache, scoring.New(cfg.Scoring), bus, cfg.Jobs.WorkerConf(), logger.New("worker"))
	if err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}

	return &Service{
		Store:     mem,
		Hub:       hub,
		Requests:  reqSvc,
		Coord:     coordSvc,
		Dispatch:  manager,
		Scheduler: sched,
		Worker:    worker,
		Cache:     cache,
		queue:     queue,
		trail:     trail,
		bus:       bus,
		log:       log,
		wsAddr:    cfg.Broadcast.Addr,
		auth:      auth,
		promAddr:  cfg.Metrics.PrometheusAddr,
		pending:   make(chan uuid.UUID, 64),
	}, nil
}

func newAuditStore(cfg config.AuditConfig) (audit.Store, error) {
	switch cfg.Backend {
	case "jsonl":
		return audit.NewJSONLStore(cfg.Path)
	case "rotating":
		return audit.NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return audit.NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown audit backend %s", cfg.Backend)
	}
}

func newQueue(cfg config.JobsConfig) (jobqueue.Queue, error) {
	switch cfg.Queue {
	case "mqtt":
		return jobs.NewMQTTQueue(cfg.MQTT)
	case "memory":
		return jobs.NewMemoryQueue(0), nil
	default:
		return nil, fmt.Errorf("unknown job queue %s", cfg.Queue)
	}
}

func newCache(cfg config.JobsConfig) jobs.ResultCache {
	if cfg.Cache == "redis" {
		return jobs.NewRedisCache(cfg.Redis)
	}
	return jobs.NewMemoryCache()
}

// SubmitForDispatch hands a pending request to the auto-dispatch loop.
func (s *Service) SubmitForDispatch(id uuid.UUID) {
	select {
	case s.pending <- id:
	default:
		s.log.Warnf("dispatch backlog full, dropping request %s", id)
	}
}

// Run starts the background loops and the websocket endpoint, blocking until
// the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.log)
	go s.Dispatch.Run(ctx, s.pending)
	go s.Scheduler.Run(ctx)
	go func() {
		if err := s.Worker.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.Errorf("worker stopped: %v", err)
		}
	}()
	if s.promAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", infrabroadcast.NewHandler(s.Hub, s.auth, logger.New("ws")))
	srv := &http.Server{Addr: s.wsAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	err := s.queue.Close()
	if cerr := s.trail.Close(); err == nil {
		err = cerr
	}
	s.bus.Close()
	return err
}
