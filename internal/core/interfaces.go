package core

import (
	"context"
	"errors"

	"github.com/avdeev/tandem/internal/domain"
)

// Frame is a raw wire payload, already JSON-encoded.
type Frame []byte

// SignalConnection abstracts the per-client messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// EventSink delivers an outbound event to one connection. The value is
// marshalled by the adapter; components never touch the wire encoding.
type EventSink interface {
	Send(id domain.ConnID, v any)
}

var ErrAccountNotFound = errors.New("account not found")

// AccountDirectory resolves declared account ids against durable
// identity storage. The core never caches what it returns.
type AccountDirectory interface {
	ResolveAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error)
}

// SessionRecords is the durable accounting side of a live session.
// BeginSession writes the active session row at match time and returns
// its id. RecordCompletion marks it completed and credits the student's
// call time and the teacher's teaching time in one transaction.
type SessionRecords interface {
	BeginSession(ctx context.Context, student, teacher domain.AccountID, roomID domain.RoomID) (domain.SessionID, error)
	RecordCompletion(ctx context.Context, id domain.SessionID, durationSeconds int64) error
}
