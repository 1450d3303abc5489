package memstate

import (
	"context"
	"sync"
	"time"

	"telegram-vpn-subscription/internal/domain/ports/repository"
)

var _ repository.StateRepository = (*StateRepo)(nil)

// StateRepo is the in-process StateRepository used when no Redis is
// configured. State does not survive restarts; entries expire lazily on the
// same 15 minute budget the Redis repo uses.
type StateRepo struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	states map[int64]entry
}

type entry struct {
	state   repository.ProofContext
	touched time.Time
}

func NewStateRepo() *StateRepo {
	return &StateRepo{
		ttl:    15 * time.Minute,
		now:    time.Now,
		states: make(map[int64]entry),
	}
}

func (s *StateRepo) GetState(ctx context.Context, tgID int64) (*repository.ProofContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[tgID]
	if !ok {
		return nil, nil
	}
	if s.now().Sub(e.touched) > s.ttl {
		delete(s.states, tgID)
		return nil, nil
	}
	cp := e.state
	return &cp, nil
}

func (s *StateRepo) SetState(ctx context.Context, tgID int64, state *repository.ProofContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[tgID] = entry{state: *state, touched: s.now()}
	return nil
}

func (s *StateRepo) ClearState(ctx context.Context, tgID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, tgID)
	return nil
}
