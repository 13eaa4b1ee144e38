package app

import (
	"context"
	"errors"
	"sync"

	"github.com/avdeev/tandem/internal/core"
	"github.com/avdeev/tandem/internal/domain"
)

// Hand-rolled fakes for the core collaborator interfaces.

type fakeSink struct {
	mu     sync.Mutex
	events map[domain.ConnID][]any
	raw    map[domain.ConnID][]core.Frame
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		events: make(map[domain.ConnID][]any),
		raw:    make(map[domain.ConnID][]core.Frame),
	}
}

func (s *fakeSink) Send(id domain.ConnID, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id] = append(s.events[id], v)
}

func (s *fakeSink) SendRaw(id domain.ConnID, f core.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[id] = append(s.raw[id], f)
}

func (s *fakeSink) eventsFor(id domain.ConnID) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.events[id]))
	copy(out, s.events[id])
	return out
}

func (s *fakeSink) rawFor(id domain.ConnID) []core.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Frame, len(s.raw[id]))
	copy(out, s.raw[id])
	return out
}

func (s *fakeSink) lastEvent(id domain.ConnID) (any, bool) {
	evs := s.eventsFor(id)
	if len(evs) == 0 {
		return nil, false
	}
	return evs[len(evs)-1], true
}

type fakeDirectory struct {
	accounts map[domain.AccountID]*domain.Account
	// resolveFn, when set, overrides the map lookup.
	resolveFn func(domain.AccountID) (*domain.Account, error)
}

func newFakeDirectory(accounts ...*domain.Account) *fakeDirectory {
	d := &fakeDirectory{accounts: make(map[domain.AccountID]*domain.Account)}
	for _, a := range accounts {
		d.accounts[a.ID] = a
	}
	return d
}

func (d *fakeDirectory) ResolveAccount(_ context.Context, id domain.AccountID) (*domain.Account, error) {
	if d.resolveFn != nil {
		return d.resolveFn(id)
	}
	if a, ok := d.accounts[id]; ok {
		return a, nil
	}
	return nil, core.ErrAccountNotFound
}

type fakeRecords struct {
	mu          sync.Mutex
	nextID      int64
	began       int
	completions map[domain.SessionID]int64

	// failBegin makes BeginSession fail; failRemaining makes the next N
	// RecordCompletion calls fail; block, when non-nil, parks
	// RecordCompletion until the channel is closed, announcing the
	// parked caller on blockEntered first.
	failBegin     bool
	failRemaining int
	block         chan struct{}
	blockEntered  chan struct{}
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{completions: make(map[domain.SessionID]int64)}
}

func (r *fakeRecords) BeginSession(_ context.Context, _, _ domain.AccountID, _ domain.RoomID) (domain.SessionID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failBegin {
		return 0, errors.New("store unavailable")
	}
	r.nextID++
	r.began++
	return domain.SessionID(r.nextID), nil
}

func (r *fakeRecords) RecordCompletion(_ context.Context, id domain.SessionID, duration int64) error {
	if r.block != nil {
		if r.blockEntered != nil {
			r.blockEntered <- struct{}{}
		}
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRemaining > 0 {
		r.failRemaining--
		return errors.New("store unavailable")
	}
	if _, ok := r.completions[id]; ok {
		return errors.New("session already recorded")
	}
	r.completions[id] = duration
	return nil
}

func (r *fakeRecords) completed(id domain.SessionID) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.completions[id]
	return d, ok
}

func (r *fakeRecords) sessionsBegun() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.began
}

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
