package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avdeev/tandem/internal/core"
	"github.com/avdeev/tandem/internal/domain"
)

// WaitingEntry is a queued participant not yet paired.
type WaitingEntry struct {
	Conn       domain.ConnID
	Account    domain.AccountID
	Name       string
	EnqueuedAt time.Time
}

// Matchmaker owns the waiting-student queue and the available-teacher
// pool. Both are strict FIFO; a connection sits in at most one of them,
// and never while it is a member of an active room.
type Matchmaker struct {
	mu       sync.Mutex
	students []WaitingEntry
	teachers []WaitingEntry

	directory core.AccountDirectory
	ledger    *Ledger
	events    core.EventSink
	clock     func() time.Time
}

func NewMatchmaker(directory core.AccountDirectory, ledger *Ledger, events core.EventSink) *Matchmaker {
	return &Matchmaker{
		directory: directory,
		ledger:    ledger,
		events:    events,
		clock:     time.Now,
	}
}

// JoinQueue enqueues a student, or matches it with the
// longest-waiting available teacher.
func (m *Matchmaker) JoinQueue(ctx context.Context, conn domain.ConnID, accountID domain.AccountID) error {
	acct, err := m.resolve(ctx, accountID, domain.RoleStudent)
	if err != nil {
		return err
	}
	entry := WaitingEntry{Conn: conn, Account: acct.ID, Name: acct.DisplayName, EnqueuedAt: m.clock()}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waitingLocked(conn) || m.ledger.HasConnection(conn) {
		return ErrAlreadyActive
	}

	if len(m.teachers) > 0 {
		teacher := m.teachers[0]
		m.teachers = m.teachers[1:]
		if err := m.matchLocked(ctx, entry, teacher); err != nil {
			m.teachers = append([]WaitingEntry{teacher}, m.teachers...)
			return err
		}
		return nil
	}

	m.students = append(m.students, entry)
	log.Info().Str("module", "app.matchmaker").
		Str("conn", string(conn)).
		Str("account", string(acct.ID)).
		Int("queue_len", len(m.students)).
		Msg("student queued")
	m.events.Send(conn, NewWaiting("waiting for a teacher"))
	return nil
}

// AnnounceAvailable registers a teacher, or matches it with the
// longest-waiting student.
func (m *Matchmaker) AnnounceAvailable(ctx context.Context, conn domain.ConnID, accountID domain.AccountID) error {
	acct, err := m.resolve(ctx, accountID, domain.RoleTeacher)
	if err != nil {
		return err
	}
	entry := WaitingEntry{Conn: conn, Account: acct.ID, Name: acct.DisplayName, EnqueuedAt: m.clock()}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waitingLocked(conn) || m.ledger.HasConnection(conn) {
		return ErrAlreadyActive
	}

	if len(m.students) > 0 {
		student := m.students[0]
		m.students = m.students[1:]
		if err := m.matchLocked(ctx, student, entry); err != nil {
			m.students = append([]WaitingEntry{student}, m.students...)
			return err
		}
		return nil
	}

	m.teachers = append(m.teachers, entry)
	log.Info().Str("module", "app.matchmaker").
		Str("conn", string(conn)).
		Str("account", string(acct.ID)).
		Int("pool_len", len(m.teachers)).
		Msg("teacher available")
	m.events.Send(conn, NewWaiting("waiting for a student"))
	return nil
}

// matchLocked forms the pair under the matchmaker lock, so no other
// join can observe either participant half-matched. On error the caller
// restores the popped counterpart.
func (m *Matchmaker) matchLocked(ctx context.Context, student, teacher WaitingEntry) error {
	if student.Account == teacher.Account {
		return ErrInvalidMatch
	}

	roomID := domain.RoomID(uuid.NewString())
	room, err := m.ledger.CreateRoom(ctx, roomID, student, teacher)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	m.events.Send(student.Conn, NewMatched(room, domain.RoleTeacher, teacher.Name))
	m.events.Send(teacher.Conn, NewMatched(room, domain.RoleStudent, student.Name))

	log.Info().Str("module", "app.matchmaker").
		Str("room", string(roomID)).
		Str("student", string(student.Account)).
		Str("teacher", string(teacher.Account)).
		Msg("matched")
	return nil
}

// Leave drops any waiting entry for the connection. A connection with
// no entry is a no-op: disconnect cleanup calls this unconditionally.
func (m *Matchmaker) Leave(conn domain.ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if removed := removeEntry(&m.students, conn); removed {
		log.Info().Str("module", "app.matchmaker").Str("conn", string(conn)).Msg("student left queue")
		return
	}
	if removed := removeEntry(&m.teachers, conn); removed {
		log.Info().Str("module", "app.matchmaker").Str("conn", string(conn)).Msg("teacher left pool")
	}
}

// WaitingCounts reports queue and pool sizes for the stats endpoint.
func (m *Matchmaker) WaitingCounts() (students, teachers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.students), len(m.teachers)
}

func (m *Matchmaker) waitingLocked(conn domain.ConnID) bool {
	for _, e := range m.students {
		if e.Conn == conn {
			return true
		}
	}
	for _, e := range m.teachers {
		if e.Conn == conn {
			return true
		}
	}
	return false
}

func removeEntry(entries *[]WaitingEntry, conn domain.ConnID) bool {
	for i, e := range *entries {
		if e.Conn == conn {
			*entries = append((*entries)[:i], (*entries)[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Matchmaker) resolve(ctx context.Context, accountID domain.AccountID, want domain.Role) (*domain.Account, error) {
	acct, err := m.directory.ResolveAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentity, err)
	}
	if acct.Role != want {
		return nil, ErrRoleMismatch
	}
	return acct, nil
}
