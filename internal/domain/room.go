package domain

import "time"

type (
	RoomID    string
	SessionID int64
)

type RoomStatus string

const (
	RoomActive RoomStatus = "active"
	// RoomCompleting marks a room whose durable write is in flight.
	// Not active anymore: signaling and duplicate end-calls must miss it.
	RoomCompleting RoomStatus = "completing"
	RoomCompleted  RoomStatus = "completed"
)

// Room pairs exactly one student connection with one teacher connection
// for one live session.
type Room struct {
	ID        RoomID
	SessionID SessionID
	Status    RoomStatus

	StudentConn ConnID
	TeacherConn ConnID

	StudentAccount AccountID
	TeacherAccount AccountID

	StudentName string
	TeacherName string

	StartedAt time.Time
	EndedAt   time.Time
}

// Peer returns the other member's connection id, or false when the
// given connection is not a member of the room.
func (r *Room) Peer(conn ConnID) (ConnID, bool) {
	switch conn {
	case r.StudentConn:
		return r.TeacherConn, true
	case r.TeacherConn:
		return r.StudentConn, true
	}
	return "", false
}
