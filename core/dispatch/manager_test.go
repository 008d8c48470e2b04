package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/broadcast"
	"github.com/afetops/coordcore/core/metrics"
	"github.com/afetops/coordcore/core/model"
	"github.com/afetops/coordcore/core/request"
	"github.com/afetops/coordcore/core/store"
	"github.com/afetops/coordcore/infra/logger"
	"github.com/afetops/coordcore/internal/eventbus"
)

type nopBus struct{}

func (nopBus) Publish(broadcast.Room, broadcast.Event)             {}
func (nopBus) PublishRoles([]model.Role, broadcast.Event)          {}
func (nopBus) Subscribe(string, model.Actor, broadcast.Room) error { return nil }
func (nopBus) Join(string, broadcast.Room)                         {}
func (nopBus) Unsubscribe(string, broadcast.Room)                  {}

type fakeSink struct {
	mu      sync.Mutex
	records []metrics.AssignmentRecord
}

func (f *fakeSink) RecordDispatchResult(rs []metrics.AssignmentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rs...)
	return nil
}

func (f *fakeSink) RecordPrioritySnapshot([]metrics.LocationScore) error { return nil }

var dispatcherActor = model.Actor{ID: uuid.New(), Name: "auto-dispatch", Role: model.RoleCoordinator}

type managerFixture struct {
	mgr      *Manager
	svc      *request.Service
	mem      *store.Memory
	sink     *fakeSink
	disaster model.Disaster
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	mem := store.NewMemory()
	svc, err := request.NewService(mem, mem.Locations(), mem.Teams(), mem.Requests(), nopBus{}, nil, nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	sink := &fakeSink{}
	mgr, err := NewManager(svc, mem.Requests(), mem.Teams(), mem.Locations(), sink, eventbus.New(), dispatcherActor, logger.NopLogger{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	d := model.Disaster{
		ID:        uuid.New(),
		Type:      model.DisasterEarthquake,
		Name:      "Marmara earthquake",
		Severity:  model.LevelCritical,
		Status:    model.DisasterActive,
		StartDate: time.Now().Add(-time.Hour),
	}
	if err := mem.Create(context.Background(), d); err != nil {
		t.Fatalf("seed disaster: %v", err)
	}
	return &managerFixture{mgr: mgr, svc: svc, mem: mem, sink: sink, disaster: d}
}

func (f *managerFixture) seedTeam(t *testing.T, tt model.TeamType, at *model.Point) model.Team {
	t.Helper()
	tm := model.Team{
		ID:              uuid.New(),
		DisasterID:      f.disaster.ID,
		Name:            string(tt) + "-" + uuid.NewString()[:8],
		Type:            tt,
		Status:          model.TeamReady,
		LeaderID:        uuid.New(),
		Capacity:        model.Capacity{Max: 3},
		CurrentLocation: at,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := f.mem.Teams().Create(context.Background(), tm); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	return tm
}

func (f *managerFixture) submit(t *testing.T, rt model.RequestType, at *model.Point) model.HelpRequest {
	t.Helper()
	r, err := f.svc.Submit(context.Background(), request.SubmitInput{
		DisasterID:  f.disaster.ID,
		RequestType: rt,
		Urgency:     model.LevelHigh,
		Requester:   model.RequesterContact{Name: "Requester", Phone: "+905550001122"},
		Coordinates: at,
		Description: "needs help",
	}, model.Actor{ID: uuid.New(), Role: model.RoleCitizen})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return r
}

func TestManagerDispatchAssignsNearestCapableTeam(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	f.seedTeam(t, model.TeamMedical, &model.Point{Lat: 40.76, Lon: 29.91})
	far := f.seedTeam(t, model.TeamSearchRescue, &model.Point{Lat: 41.5, Lon: 31.0})
	near := f.seedTeam(t, model.TeamSearchRescue, &model.Point{Lat: 40.77, Lon: 29.92})
	_ = far

	r := f.submit(t, model.RequestRescue, &model.Point{Lat: 40.76, Lon: 29.91})
	got, err := f.mgr.Dispatch(ctx, r.ID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got.Status != model.RequestAssigned {
		t.Fatalf("status = %q", got.Status)
	}
	if got.AssignedTeamID == nil || *got.AssignedTeamID != near.ID {
		t.Fatalf("assigned %v, want nearest search-rescue team", got.AssignedTeamID)
	}
	if len(f.sink.records) != 1 || !f.sink.records[0].Succeeded || !f.sink.records[0].Auto {
		t.Fatalf("sink records %+v", f.sink.records)
	}
}

func TestManagerDispatchNoCandidate(t *testing.T) {
	f := newManagerFixture(t)
	f.seedTeam(t, model.TeamMedical, nil)

	r := f.submit(t, model.RequestRescue, nil)
	if _, err := f.mgr.Dispatch(context.Background(), r.ID); !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("got %v, want ErrNoCandidate", err)
	}
	if len(f.sink.records) != 0 {
		t.Fatalf("no attempt should be recorded without a candidate")
	}
}

func TestManagerDispatchSpreadsLoad(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	a := f.seedTeam(t, model.TeamSearchRescue, nil)
	b := f.seedTeam(t, model.TeamSearchRescue, nil)

	first, err := f.mgr.Dispatch(ctx, f.submit(t, model.RequestRescue, nil).ID)
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	second, err := f.mgr.Dispatch(ctx, f.submit(t, model.RequestRescue, nil).ID)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	got := map[uuid.UUID]bool{*first.AssignedTeamID: true, *second.AssignedTeamID: true}
	if !got[a.ID] || !got[b.ID] {
		t.Fatalf("load not spread: %v", got)
	}
}

func TestManagerDispatchRejectsNonPending(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	f.seedTeam(t, model.TeamSearchRescue, nil)

	r := f.submit(t, model.RequestRescue, nil)
	if _, err := f.mgr.Dispatch(ctx, r.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := f.mgr.Dispatch(ctx, r.ID); err == nil {
		t.Fatalf("expected error dispatching an assigned request")
	}
}

func TestManagerRequiresAuthorizedActor(t *testing.T) {
	f := newManagerFixture(t)
	_, err := NewManager(f.svc, f.mem.Requests(), f.mem.Teams(), f.mem.Locations(), nil, nil,
		model.Actor{ID: uuid.New(), Role: model.RoleCitizen}, logger.NopLogger{})
	if err == nil {
		t.Fatalf("expected error for citizen dispatch actor")
	}
}
