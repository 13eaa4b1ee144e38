package app

import (
	"context"
	"errors"
	"testing"

	"github.com/avdeev/tandem/internal/domain"
)

var (
	studentAcct = &domain.Account{ID: "s1", Role: domain.RoleStudent, DisplayName: "Sana"}
	student2    = &domain.Account{ID: "s2", Role: domain.RoleStudent, DisplayName: "Boris"}
	teacherAcct = &domain.Account{ID: "t1", Role: domain.RoleTeacher, DisplayName: "Mark"}
)

func newTestMatchmaker(t *testing.T, accounts ...*domain.Account) (*Matchmaker, *Ledger, *fakeSink, *fakeRecords) {
	t.Helper()
	sink := newFakeSink()
	records := newFakeRecords()
	ledger := NewLedger(records, sink, 0, 0)
	mm := NewMatchmaker(newFakeDirectory(accounts...), ledger, sink)
	return mm, ledger, sink, records
}

func matchedFrom(t *testing.T, sink *fakeSink, conn domain.ConnID) MatchedEvent {
	t.Helper()
	ev, ok := sink.lastEvent(conn)
	if !ok {
		t.Fatalf("no events for %s", conn)
	}
	m, ok := ev.(MatchedEvent)
	if !ok {
		t.Fatalf("last event for %s is %T, want MatchedEvent", conn, ev)
	}
	return m
}

func TestTeacherWaitsThenStudentMatches(t *testing.T) {
	mm, ledger, sink, _ := newTestMatchmaker(t, studentAcct, teacherAcct)
	ctx := context.Background()

	if err := mm.AnnounceAvailable(ctx, "conn-t", teacherAcct.ID); err != nil {
		t.Fatalf("announce: %v", err)
	}
	if ev, _ := sink.lastEvent("conn-t"); ev.(WaitingEvent).Type != EventWaiting {
		t.Fatalf("teacher should be waiting, got %#v", ev)
	}

	if err := mm.JoinQueue(ctx, "conn-s", studentAcct.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	sm := matchedFrom(t, sink, "conn-s")
	tm := matchedFrom(t, sink, "conn-t")
	if sm.RoomID == "" || sm.RoomID != tm.RoomID {
		t.Fatalf("room ids differ: %q vs %q", sm.RoomID, tm.RoomID)
	}
	if sm.PeerRole != domain.RoleTeacher || sm.PeerName != "Mark" {
		t.Errorf("student peer = %s/%s", sm.PeerRole, sm.PeerName)
	}
	if tm.PeerRole != domain.RoleStudent || tm.PeerName != "Sana" {
		t.Errorf("teacher peer = %s/%s", tm.PeerRole, tm.PeerName)
	}
	if ledger.ActiveCount() != 1 {
		t.Errorf("active rooms = %d, want 1", ledger.ActiveCount())
	}

	students, teachers := mm.WaitingCounts()
	if students != 0 || teachers != 0 {
		t.Errorf("waiting = %d/%d, want 0/0", students, teachers)
	}
}

func TestQueueIsFIFO(t *testing.T) {
	mm, _, sink, _ := newTestMatchmaker(t, studentAcct, student2, teacherAcct)
	ctx := context.Background()

	if err := mm.JoinQueue(ctx, "conn-s1", studentAcct.ID); err != nil {
		t.Fatalf("join s1: %v", err)
	}
	if err := mm.JoinQueue(ctx, "conn-s2", student2.ID); err != nil {
		t.Fatalf("join s2: %v", err)
	}
	if err := mm.AnnounceAvailable(ctx, "conn-t", teacherAcct.ID); err != nil {
		t.Fatalf("announce: %v", err)
	}

	m := matchedFrom(t, sink, "conn-t")
	if m.PeerName != "Sana" {
		t.Errorf("teacher matched with %s, want the first-queued Sana", m.PeerName)
	}
	if _, ok := sink.lastEvent("conn-s2"); !ok {
		t.Fatal("s2 has no events")
	}
	if ev, _ := sink.lastEvent("conn-s2"); ev.(WaitingEvent).Type != EventWaiting {
		t.Errorf("s2 should still be waiting, got %#v", ev)
	}

	students, _ := mm.WaitingCounts()
	if students != 1 {
		t.Errorf("queue len = %d, want 1", students)
	}
}

func TestJoinQueueRoleMismatch(t *testing.T) {
	mm, _, _, _ := newTestMatchmaker(t, teacherAcct)
	if err := mm.JoinQueue(context.Background(), "conn-t", teacherAcct.ID); !errors.Is(err, ErrRoleMismatch) {
		t.Fatalf("err = %v, want ErrRoleMismatch", err)
	}
}

func TestAnnounceRoleMismatch(t *testing.T) {
	mm, _, _, _ := newTestMatchmaker(t, studentAcct)
	if err := mm.AnnounceAvailable(context.Background(), "conn-s", studentAcct.ID); !errors.Is(err, ErrRoleMismatch) {
		t.Fatalf("err = %v, want ErrRoleMismatch", err)
	}
}

func TestUnknownAccountIsIdentityFailure(t *testing.T) {
	mm, _, _, _ := newTestMatchmaker(t)
	if err := mm.JoinQueue(context.Background(), "conn-x", "ghost"); !errors.Is(err, ErrIdentity) {
		t.Fatalf("err = %v, want ErrIdentity", err)
	}
}

func TestRejoinWhileWaiting(t *testing.T) {
	mm, _, _, _ := newTestMatchmaker(t, studentAcct)
	ctx := context.Background()
	if err := mm.JoinQueue(ctx, "conn-s", studentAcct.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := mm.JoinQueue(ctx, "conn-s", studentAcct.ID); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("err = %v, want ErrAlreadyActive", err)
	}
}

func TestRejoinWhileInRoom(t *testing.T) {
	mm, _, _, _ := newTestMatchmaker(t, studentAcct, teacherAcct)
	ctx := context.Background()
	if err := mm.AnnounceAvailable(ctx, "conn-t", teacherAcct.ID); err != nil {
		t.Fatalf("announce: %v", err)
	}
	if err := mm.JoinQueue(ctx, "conn-s", studentAcct.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := mm.JoinQueue(ctx, "conn-s", studentAcct.ID); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("student rejoin err = %v, want ErrAlreadyActive", err)
	}
	if err := mm.AnnounceAvailable(ctx, "conn-t", teacherAcct.ID); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("teacher re-announce err = %v, want ErrAlreadyActive", err)
	}
}

func TestSelfMatchRejected(t *testing.T) {
	// The directory is forced to hand out whichever role the caller
	// claims, so the same account can reach both sides of the match.
	mm, _, _, records := newTestMatchmaker(t)
	mm.directory.(*fakeDirectory).resolveFn = func(id domain.AccountID) (*domain.Account, error) {
		return &domain.Account{ID: "dual", Role: domain.RoleTeacher, DisplayName: "Dual"}, nil
	}
	ctx := context.Background()
	if err := mm.AnnounceAvailable(ctx, "conn-a", "dual"); err != nil {
		t.Fatalf("announce: %v", err)
	}

	mm.directory.(*fakeDirectory).resolveFn = func(id domain.AccountID) (*domain.Account, error) {
		return &domain.Account{ID: "dual", Role: domain.RoleStudent, DisplayName: "Dual"}, nil
	}
	if err := mm.JoinQueue(ctx, "conn-b", "dual"); !errors.Is(err, ErrInvalidMatch) {
		t.Fatalf("err = %v, want ErrInvalidMatch", err)
	}

	if records.sessionsBegun() != 0 {
		t.Error("no durable session should exist after a rejected match")
	}
	_, teachers := mm.WaitingCounts()
	if teachers != 1 {
		t.Errorf("teacher pool = %d, want the popped teacher restored", teachers)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	mm, _, sink, _ := newTestMatchmaker(t, studentAcct)
	mm.Leave("nobody")
	if evs := sink.eventsFor("nobody"); len(evs) != 0 {
		t.Fatalf("leave of unknown conn produced events: %#v", evs)
	}

	ctx := context.Background()
	if err := mm.JoinQueue(ctx, "conn-s", studentAcct.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	mm.Leave("conn-s")
	mm.Leave("conn-s")
	students, _ := mm.WaitingCounts()
	if students != 0 {
		t.Errorf("queue len = %d, want 0", students)
	}
}

func TestDisconnectWhileWaitingLeavesNoTrace(t *testing.T) {
	mm, ledger, _, records := newTestMatchmaker(t, studentAcct)
	ctx := context.Background()
	if err := mm.JoinQueue(ctx, "conn-s", studentAcct.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Disconnect hook order: leave the queue, then force-end rooms.
	mm.Leave("conn-s")
	ledger.ForceEndByConnection(ctx, "conn-s")

	students, _ := mm.WaitingCounts()
	if students != 0 {
		t.Errorf("queue len = %d, want 0", students)
	}
	if records.sessionsBegun() != 0 {
		t.Error("waiting-only disconnect must not touch durable storage")
	}
}

func TestMatchRestoresPeerWhenStoreFails(t *testing.T) {
	mm, _, _, records := newTestMatchmaker(t, studentAcct, teacherAcct)
	ctx := context.Background()
	if err := mm.AnnounceAvailable(ctx, "conn-t", teacherAcct.ID); err != nil {
		t.Fatalf("announce: %v", err)
	}

	records.mu.Lock()
	records.failBegin = true
	records.mu.Unlock()

	if err := mm.JoinQueue(ctx, "conn-s", studentAcct.ID); err == nil {
		t.Fatal("join should fail when the session row cannot be created")
	}
	_, teachers := mm.WaitingCounts()
	if teachers != 1 {
		t.Errorf("teacher pool = %d, want the teacher restored", teachers)
	}
}
