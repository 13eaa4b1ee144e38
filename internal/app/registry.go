package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avdeev/tandem/internal/core"
	"github.com/avdeev/tandem/internal/domain"
)

type connEntry struct {
	Conn   core.SignalConnection
	Cancel context.CancelFunc
	gone   bool
}

// DisconnectHook runs synchronously inside Deregister, before the
// connection handle is discarded. Wired in main to the matchmaker's
// Leave and the ledger's ForceEndByConnection.
type DisconnectHook func(id domain.ConnID)

// Registry tracks live client connections. It owns nothing beyond the
// handle itself; queue and room membership live in their components.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*connEntry
	hook  DisconnectHook
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.ConnID]*connEntry)}
}

// OnDisconnect installs the disconnect hook. Must be called during
// wiring, before any connection registers.
func (r *Registry) OnDisconnect(hook DisconnectHook) {
	r.hook = hook
}

func (r *Registry) Register(id domain.ConnID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	r.conns[id] = &connEntry{Conn: conn, Cancel: cancel}
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("registered connection")
}

func (r *Registry) Lookup(id domain.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Deregister removes the connection after running the disconnect hook,
// so cleanup can still send to the departing peer's counterpart while
// both handles are alive. Redundant calls are no-ops.
func (r *Registry) Deregister(id domain.ConnID) {
	r.mu.Lock()
	e, ok := r.conns[id]
	if !ok || e.gone {
		r.mu.Unlock()
		return
	}
	// Claim teardown so a redundant disconnect runs the hook only once.
	e.gone = true
	r.mu.Unlock()

	if r.hook != nil {
		r.hook(id)
	}

	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()

	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("deregistered connection")
}
