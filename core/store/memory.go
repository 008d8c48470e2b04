package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/model"
)

// Memory is the in-memory implementation of all entity stores. Mutations
// take the write lock for the duration of the mutate callback, which makes
// UpdateIfStatus an atomic check-and-set.
type Memory struct {
	mu        sync.RWMutex
	disasters map[uuid.UUID]model.Disaster
	locations map[uuid.UUID]model.Location
	teams     map[uuid.UUID]model.Team
	requests  map[uuid.UUID]model.HelpRequest
	resources map[uuid.UUID]model.Resource
	resReqs   map[uuid.UUID]model.ResourceRequest
}

// NewMemory creates an empty in-memory store set.
func NewMemory() *Memory {
	return &Memory{
		disasters: make(map[uuid.UUID]model.Disaster),
		locations: make(map[uuid.UUID]model.Location),
		teams:     make(map[uuid.UUID]model.Team),
		requests:  make(map[uuid.UUID]model.HelpRequest),
		resources: make(map[uuid.UUID]model.Resource),
		resReqs:   make(map[uuid.UUID]model.ResourceRequest),
	}
}

func (m *Memory) Create(ctx context.Context, d model.Disaster) error {
	if err := d.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.disasters[d.ID] = d
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(ctx context.Context, id uuid.UUID) (model.Disaster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.disasters[id]
	if !ok {
		return model.Disaster{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) Update(ctx context.Context, id uuid.UUID, mutate func(*model.Disaster) error) (model.Disaster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disasters[id]
	if !ok {
		return model.Disaster{}, ErrNotFound
	}
	if err := mutate(&d); err != nil {
		return model.Disaster{}, err
	}
	if err := d.Validate(); err != nil {
		return model.Disaster{}, err
	}
	m.disasters[id] = d
	return d, nil
}

func (m *Memory) List(ctx context.Context) ([]model.Disaster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]model.Disaster, 0, len(m.disasters))
	for _, d := range m.disasters {
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

// Locations returns a LocationStore view of the memory set.
func (m *Memory) Locations() LocationStore { return (*memoryLocations)(m) }

// Teams returns a TeamStore view of the memory set.
func (m *Memory) Teams() TeamStore { return (*memoryTeams)(m) }

// Requests returns a RequestStore view of the memory set.
func (m *Memory) Requests() RequestStore { return (*memoryRequests)(m) }

// Resources returns a ResourceStore view of the memory set.
func (m *Memory) Resources() ResourceStore { return (*memoryResources)(m) }

// ResourceRequests returns a ResourceRequestStore view of the memory set.
func (m *Memory) ResourceRequests() ResourceRequestStore { return (*memoryResourceRequests)(m) }

type memoryLocations Memory

func (m *memoryLocations) Create(ctx context.Context, l model.Location) error {
	if err := l.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.locations[l.ID] = l
	m.mu.Unlock()
	return nil
}

func (m *memoryLocations) Get(ctx context.Context, id uuid.UUID) (model.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.locations[id]
	if !ok {
		return model.Location{}, ErrNotFound
	}
	return l, nil
}

func (m *memoryLocations) Update(ctx context.Context, id uuid.UUID, mutate func(*model.Location) error) (model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locations[id]
	if !ok {
		return model.Location{}, ErrNotFound
	}
	if err := mutate(&l); err != nil {
		return model.Location{}, err
	}
	if err := l.Validate(); err != nil {
		return model.Location{}, err
	}
	m.locations[id] = l
	return l, nil
}

func (m *memoryLocations) ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]model.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []model.Location
	for _, l := range m.locations {
		if l.DisasterID == disasterID {
			res = append(res, l)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

type memoryTeams Memory

func (m *memoryTeams) Create(ctx context.Context, t model.Team) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.teams[t.ID] = t
	m.mu.Unlock()
	return nil
}

func (m *memoryTeams) Get(ctx context.Context, id uuid.UUID) (model.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	if !ok {
		return model.Team{}, ErrNotFound
	}
	return t, nil
}

func (m *memoryTeams) Update(ctx context.Context, id uuid.UUID, mutate func(*model.Team) error) (model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return model.Team{}, ErrNotFound
	}
	if err := mutate(&t); err != nil {
		return model.Team{}, err
	}
	if err := t.Validate(); err != nil {
		return model.Team{}, err
	}
	m.teams[id] = t
	return t, nil
}

func (m *memoryTeams) ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]model.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []model.Team
	for _, t := range m.teams {
		if t.DisasterID == disasterID {
			res = append(res, t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

type memoryRequests Memory

func (m *memoryRequests) Create(ctx context.Context, r model.HelpRequest) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.requests[r.ID] = r
	m.mu.Unlock()
	return nil
}

func (m *memoryRequests) Get(ctx context.Context, id uuid.UUID) (model.HelpRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return model.HelpRequest{}, ErrNotFound
	}
	return r, nil
}

func (m *memoryRequests) UpdateIfStatus(ctx context.Context, id uuid.UUID, expect model.RequestStatus, mutate func(*model.HelpRequest) error) (model.HelpRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return model.HelpRequest{}, ErrNotFound
	}
	if r.Status != expect {
		return model.HelpRequest{}, &ConflictError{Current: r.Status}
	}
	if err := mutate(&r); err != nil {
		return model.HelpRequest{}, err
	}
	if err := r.Validate(); err != nil {
		return model.HelpRequest{}, err
	}
	m.requests[id] = r
	return r, nil
}

func (m *memoryRequests) ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]model.HelpRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []model.HelpRequest
	for _, r := range m.requests {
		if r.DisasterID == disasterID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (m *memoryRequests) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]model.HelpRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []model.HelpRequest
	for _, r := range m.requests {
		if r.AssignedTeamID != nil && *r.AssignedTeamID == teamID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

type memoryResources Memory

func (m *memoryResources) Create(ctx context.Context, r model.Resource) error {
	m.mu.Lock()
	m.resources[r.ID] = r
	m.mu.Unlock()
	return nil
}

func (m *memoryResources) List(ctx context.Context) ([]model.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]model.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Category != res[j].Category {
			return res[i].Category < res[j].Category
		}
		return res[i].Name < res[j].Name
	})
	return res, nil
}

type memoryResourceRequests Memory

func (m *memoryResourceRequests) Create(ctx context.Context, r model.ResourceRequest) error {
	m.mu.Lock()
	m.resReqs[r.ID] = r
	m.mu.Unlock()
	return nil
}

func (m *memoryResourceRequests) ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]model.ResourceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []model.ResourceRequest
	for _, r := range m.resReqs {
		if r.DisasterID == disasterID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}
