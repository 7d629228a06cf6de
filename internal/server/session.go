package server

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vultisig/tx-signer/internal/flow"
	"github.com/vultisig/tx-signer/internal/metrics"
	"github.com/vultisig/tx-signer/internal/pending"
)

// PageSession is everything one page view owns. Set and Params never change after creation.
type PageSession struct {
	ID       string
	Set      *pending.Set
	ParseErr error
	Params   pending.Params
	State    *flow.State

	mu       sync.Mutex
	wallet   *flow.Session
	lastSeen time.Time
}

func (p *PageSession) Wallet() *flow.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wallet
}

func (p *PageSession) setWallet(w *flow.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wallet = w
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*PageSession
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*PageSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create parses the page query into a new session. A query without a valid transaction set still
// yields a session: the page shows the "no transaction data" view and can connect.
func (s *Store) Create(q url.Values) *PageSession {
	set, err := pending.Parse(q)

	ps := &PageSession{
		ID:       uuid.NewString(),
		Set:      set,
		ParseErr: err,
		Params:   pending.ParseParams(q),
		State:    flow.NewState(),
		lastSeen: s.now(),
	}

	s.mu.Lock()
	s.sessions[ps.ID] = ps
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetActiveSessions(n)
	return ps
}

func (s *Store) Get(id string) (*PageSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	ps.mu.Lock()
	ps.lastSeen = s.now()
	ps.mu.Unlock()
	return ps, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict drops sessions idle longer than the TTL. A session with a run in flight is kept.
func (s *Store) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for id, ps := range s.sessions {
		ps.mu.Lock()
		idle := ps.lastSeen.Before(cutoff)
		ps.mu.Unlock()

		if idle && ps.State.Status() != flow.StatusSigning {
			delete(s.sessions, id)
			evicted++
		}
	}

	metrics.SetActiveSessions(len(s.sessions))
	return evicted
}

func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict()
		}
	}
}
