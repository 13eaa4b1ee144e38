package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avdeev/tandem/internal/core"
	"github.com/avdeev/tandem/internal/domain"
)

// Ledger owns the active room table and its reverse index
// (connection → room). It is the only component that issues durable
// session accounting writes, and it issues exactly one per room.
type Ledger struct {
	mu     sync.Mutex
	rooms  map[domain.RoomID]*domain.Room
	byConn map[domain.ConnID]domain.RoomID

	records core.SessionRecords
	events  core.EventSink
	clock   func() time.Time

	// Retry budget for RecordCompletion. After the budget is exhausted
	// the room is force-completed in memory and both peers get a
	// record_warning; the call itself has already ended for them.
	retries int
	backoff time.Duration
}

func NewLedger(records core.SessionRecords, events core.EventSink, retries int, backoff time.Duration) *Ledger {
	if retries < 0 {
		retries = 0
	}
	return &Ledger{
		rooms:   make(map[domain.RoomID]*domain.Room),
		byConn:  make(map[domain.ConnID]domain.RoomID),
		records: records,
		events:  events,
		clock:   time.Now,
		retries: retries,
		backoff: backoff,
	}
}

// CreateRoom opens the durable session row and activates the room.
// Only the matchmaker calls it, at match time.
func (l *Ledger) CreateRoom(ctx context.Context, roomID domain.RoomID, student, teacher WaitingEntry) (*domain.Room, error) {
	sessionID, err := l.records.BeginSession(ctx, student.Account, teacher.Account, roomID)
	if err != nil {
		return nil, err
	}

	room := &domain.Room{
		ID:             roomID,
		SessionID:      sessionID,
		Status:         domain.RoomActive,
		StudentConn:    student.Conn,
		TeacherConn:    teacher.Conn,
		StudentAccount: student.Account,
		TeacherAccount: teacher.Account,
		StudentName:    student.Name,
		TeacherName:    teacher.Name,
		StartedAt:      l.clock(),
	}

	l.mu.Lock()
	l.rooms[roomID] = room
	l.byConn[student.Conn] = roomID
	l.byConn[teacher.Conn] = roomID
	l.mu.Unlock()

	log.Info().Str("module", "app.ledger").
		Str("room", string(roomID)).
		Int64("session", int64(sessionID)).
		Str("student", string(student.Account)).
		Str("teacher", string(teacher.Account)).
		Msg("room created")
	return room, nil
}

// HasConnection reports whether the connection is a member of a room
// that has not yet been ended.
func (l *Ledger) HasConnection(conn domain.ConnID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.byConn[conn]
	return ok
}

// ActivePeer resolves the counterpart of sender in an active room.
// The signaling relay is its only caller.
func (l *Ledger) ActivePeer(roomID domain.RoomID, sender domain.ConnID) (domain.ConnID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	room, ok := l.rooms[roomID]
	if !ok || room.Status != domain.RoomActive {
		return "", ErrRoomNotFound
	}
	peer, ok := room.Peer(sender)
	if !ok {
		return "", ErrRoomNotFound
	}
	return peer, nil
}

func (l *Ledger) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}

// EndSession completes a room exactly once. Concurrent duplicates
// observe ErrAlreadyCompleted or ErrRoomNotFound and never double-credit.
// Both members are notified with call_ended.
func (l *Ledger) EndSession(ctx context.Context, roomID domain.RoomID) (int64, error) {
	l.mu.Lock()
	room, ok := l.rooms[roomID]
	if !ok {
		l.mu.Unlock()
		return 0, ErrRoomNotFound
	}
	if room.Status != domain.RoomActive {
		l.mu.Unlock()
		return 0, ErrAlreadyCompleted
	}
	room.Status = domain.RoomCompleting
	room.EndedAt = l.clock()
	duration := int64(room.EndedAt.Sub(room.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	// Free both connections for re-queuing; the call is over for the
	// users even while the durable write is still in flight.
	delete(l.byConn, room.StudentConn)
	delete(l.byConn, room.TeacherConn)
	l.mu.Unlock()

	recorded := l.recordWithRetry(ctx, room.SessionID, duration)

	l.mu.Lock()
	room.Status = domain.RoomCompleted
	delete(l.rooms, roomID)
	l.mu.Unlock()

	l.events.Send(room.StudentConn, NewCallEnded(roomID, duration))
	l.events.Send(room.TeacherConn, NewCallEnded(roomID, duration))
	if !recorded {
		l.events.Send(room.StudentConn, NewRecordWarning(roomID))
		l.events.Send(room.TeacherConn, NewRecordWarning(roomID))
	}

	log.Info().Str("module", "app.ledger").
		Str("room", string(roomID)).
		Int64("duration_s", duration).
		Bool("recorded", recorded).
		Msg("session ended")
	return duration, nil
}

func (l *Ledger) recordWithRetry(ctx context.Context, id domain.SessionID, duration int64) bool {
	attempts := l.retries + 1
	for i := 0; i < attempts; i++ {
		err := l.records.RecordCompletion(ctx, id, duration)
		if err == nil {
			return true
		}
		log.Error().Err(err).Str("module", "app.ledger").
			Int64("session", int64(id)).
			Int("attempt", i+1).
			Msg("record completion failed")
		if i < attempts-1 && l.backoff > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(l.backoff):
			}
		}
	}
	return false
}

// ForceEndByConnection ends the room containing conn, if any. Used by
// the registry's disconnect hook; a merely waiting or idle connection
// is a no-op.
func (l *Ledger) ForceEndByConnection(ctx context.Context, conn domain.ConnID) {
	l.mu.Lock()
	roomID, ok := l.byConn[conn]
	l.mu.Unlock()
	if !ok {
		return
	}
	if _, err := l.EndSession(ctx, roomID); err != nil {
		log.Warn().Err(err).Str("module", "app.ledger").
			Str("conn", string(conn)).
			Str("room", string(roomID)).
			Msg("forced end raced with a regular end")
	}
}
