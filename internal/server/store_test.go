package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/change-scorer/internal/db"
	"github.com/jonathan/change-scorer/internal/types"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	clock    time.Time
	users    map[uuid.UUID]*db.User
	requests map[uuid.UUID]*db.ChangeRequest
	configs  map[string]*types.ScoringConfig

	pingErr   error
	listErr   error
	saveCalls int
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    make(map[uuid.UUID]*db.User),
		requests: make(map[uuid.UUID]*db.ChangeRequest),
		configs:  make(map[string]*types.ScoringConfig),
	}
}

// tick advances the fake clock so creation order is observable.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }
func (f *fakeStore) Close()                     {}

func (f *fakeStore) CreateUser(_ context.Context, name, email, passwordHash string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return uuid.Nil, fmt.Errorf("user %s: %w", email, db.ErrDuplicate)
		}
	}
	now := f.tick()
	u := &db.User{ID: uuid.New(), Name: name, Email: email, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	f.users[u.ID] = u
	return u.ID, nil
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateChangeRequest(_ context.Context, in db.NewChangeRequest) (*db.ChangeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := in.Status
	if status == "" {
		status = types.StatusDraft
	}
	attrs := in.Attributes
	if len(attrs) == 0 {
		attrs = json.RawMessage(`{}`)
	}
	now := f.tick()
	cr := &db.ChangeRequest{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Attributes:  attrs,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.requests[cr.ID] = cr
	cp := *cr
	return &cp, nil
}

func (f *fakeStore) GetChangeRequest(_ context.Context, id uuid.UUID) (*db.ChangeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cr, ok := f.requests[id]; ok {
		cp := *cr
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ListChangeRequests(_ context.Context, filter db.ListFilter) ([]db.ChangeRequest, error) {
	return f.list(filter, func(a, b db.ChangeRequest) bool { return a.CreatedAt.After(b.CreatedAt) })
}

func (f *fakeStore) ListByPriority(_ context.Context, filter db.ListFilter) ([]db.ChangeRequest, error) {
	return f.list(filter, func(a, b db.ChangeRequest) bool {
		pa, pb := a.Scores.Priority, b.Scores.Priority
		switch {
		case pa != nil && pb != nil && pa.Score != pb.Score:
			return pa.Score > pb.Score
		case (pa == nil) != (pb == nil):
			return pa != nil
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

func (f *fakeStore) list(filter db.ListFilter, less func(a, b db.ChangeRequest) bool) ([]db.ChangeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []db.ChangeRequest
	for _, cr := range f.requests {
		if filter.Status == "" || cr.Status == filter.Status {
			out = append(out, *cr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if filter.Offset > 0 {
		out = out[min(filter.Offset, len(out)):]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateChangeRequest(_ context.Context, id uuid.UUID, upd db.ChangeRequestUpdate) (*db.ChangeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cr, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	if upd.Title != nil {
		cr.Title = *upd.Title
	}
	if upd.Description != nil {
		cr.Description = *upd.Description
	}
	if upd.Status != nil {
		cr.Status = *upd.Status
	}
	if len(upd.Attributes) > 0 {
		cr.Attributes = upd.Attributes
	}
	cr.UpdatedAt = f.tick()
	cp := *cr
	return &cp, nil
}

func (f *fakeStore) DeleteChangeRequest(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.requests[id]
	delete(f.requests, id)
	return ok, nil
}

func (f *fakeStore) SaveScores(_ context.Context, id uuid.UUID, scores db.ScoreSet) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	cr, ok := f.requests[id]
	if !ok {
		return false, nil
	}
	cr.Scores = scores
	return true, nil
}

func configKey(configType, name string) string {
	return configType + "/" + name
}

func (f *fakeStore) CreateScoringConfig(_ context.Context, cfg *types.ScoringConfig) (*types.ScoringConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := configKey(cfg.ConfigType, cfg.Name)
	if _, ok := f.configs[key]; ok {
		return nil, fmt.Errorf("scoring config %s: %w", key, db.ErrDuplicate)
	}
	cp := *cfg
	cp.ID = uuid.New()
	cp.CreatedAt = f.tick()
	cp.UpdatedAt = cp.CreatedAt
	f.configs[key] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) GetScoringConfig(_ context.Context, configType, name string) (*types.ScoringConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg, ok := f.configs[configKey(configType, name)]; ok {
		cp := *cfg
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ListScoringConfigs(_ context.Context, configType string, activeOnly bool) ([]types.ScoringConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.ScoringConfig
	for _, cfg := range f.configs {
		if (configType == "" || cfg.ConfigType == configType) && (!activeOnly || cfg.IsActive) {
			out = append(out, *cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return configKey(out[i].ConfigType, out[i].Name) < configKey(out[j].ConfigType, out[j].Name)
	})
	return out, nil
}

func (f *fakeStore) UpdateScoringConfig(_ context.Context, cfg *types.ScoringConfig) (*types.ScoringConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.configs[configKey(cfg.ConfigType, cfg.Name)]
	if !ok {
		return nil, nil
	}
	existing.ValueFor100Points = cfg.ValueFor100Points
	existing.ValueUnit = cfg.ValueUnit
	existing.TimeDecayPerMonth = cfg.TimeDecayPerMonth
	existing.Thresholds = cfg.Thresholds
	existing.IsActive = cfg.IsActive
	existing.UpdatedAt = f.tick()
	cp := *existing
	return &cp, nil
}

func (f *fakeStore) DeleteScoringConfig(_ context.Context, configType, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := configKey(configType, name)
	_, ok := f.configs[key]
	delete(f.configs, key)
	return ok, nil
}

var errStoreDown = errors.New("store unavailable")
