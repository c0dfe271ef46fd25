package testutil

import (
	"context"
	"sync"

	"studypilot/backend/internal/domain/profile"
	"studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/relay"
)

// MockProfileRepository is an in-memory implementation of profile.Repository.
// Error fields let tests inject store failures per operation.
type MockProfileRepository struct {
	mu         sync.Mutex
	Profiles   map[string]*profile.Profile
	EmailIndex map[string]string

	GetError     error
	CreateError  error
	UpdateError  error
	ConsumeError error
}

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{
		Profiles:   make(map[string]*profile.Profile),
		EmailIndex: make(map[string]string),
	}
}

// Seed stores a copy of the profile, bypassing error injection.
func (m *MockProfileRepository) Seed(p *profile.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.Profiles[cp.ID] = &cp
	m.EmailIndex[cp.Email] = cp.ID
}

// Get returns a copy of the stored profile, bypassing error injection.
func (m *MockProfileRepository) Get(id string) *profile.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (m *MockProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.Profiles[cp.ID] = &cp
	m.EmailIndex[cp.Email] = cp.ID
	return nil
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok {
		return nil, errors.NotFound("Profile")
	}
	cp := *p
	return &cp, nil
}

func (m *MockProfileRepository) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.EmailIndex[email]
	if !ok {
		return nil, errors.NotFound("Profile")
	}
	cp := *m.Profiles[id]
	return &cp, nil
}

func (m *MockProfileRepository) Upsert(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.Profiles[p.ID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *p
	m.Profiles[cp.ID] = &cp
	m.EmailIndex[cp.Email] = cp.ID
	out := cp
	return &out, nil
}

func (m *MockProfileRepository) SetPlanByID(ctx context.Context, id, plan string) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok {
		return false, nil
	}
	p.Plan = plan
	return true, nil
}

func (m *MockProfileRepository) SetPlanByEmail(ctx context.Context, email, plan string) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.EmailIndex[email]
	if !ok {
		return false, nil
	}
	m.Profiles[id].Plan = plan
	return true, nil
}

func (m *MockProfileRepository) ConsumeCounter(ctx context.Context, id string, c profile.Counter, quota int, today string) (bool, error) {
	if m.ConsumeError != nil {
		return false, m.ConsumeError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok {
		return false, errors.NotFound("Profile")
	}
	p.ApplyReset(today)
	if p.Plan == profile.PlanPremium {
		return true, nil
	}
	if p.Value(c) >= quota {
		return false, nil
	}
	switch c {
	case profile.CounterNotes:
		p.NotesToday++
	case profile.CounterQnA:
		p.QnaToday++
	}
	return true, nil
}

func (m *MockProfileRepository) ResetStale(ctx context.Context, id, today string) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Profiles[id]; ok {
		p.ApplyReset(today)
	}
	return nil
}

// MockCompleter is a canned relay.Completer recording every request.
type MockCompleter struct {
	mu       sync.Mutex
	Response string
	Err      error
	Calls    []relay.Request
}

func (m *MockCompleter) Complete(ctx context.Context, req relay.Request) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// CallCount returns the number of relay calls made so far.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
