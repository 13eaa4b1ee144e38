package app

import "github.com/avdeev/tandem/internal/domain"

// Outbound event kinds produced by the core components. The signal
// adapter owns the inbound side and the error envelope.
const (
	EventWaiting       = "waiting"
	EventMatched       = "matched"
	EventCallEnded     = "call_ended"
	EventRecordWarning = "record_warning"
)

type WaitingEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewWaiting(message string) WaitingEvent {
	return WaitingEvent{Type: EventWaiting, Message: message}
}

type MatchedEvent struct {
	Type      string           `json:"type"`
	RoomID    domain.RoomID    `json:"room_id"`
	SessionID domain.SessionID `json:"session_id"`
	PeerRole  domain.Role      `json:"peer_role"`
	PeerName  string           `json:"peer_name"`
}

func NewMatched(room *domain.Room, peerRole domain.Role, peerName string) MatchedEvent {
	return MatchedEvent{
		Type:      EventMatched,
		RoomID:    room.ID,
		SessionID: room.SessionID,
		PeerRole:  peerRole,
		PeerName:  peerName,
	}
}

type CallEndedEvent struct {
	Type            string        `json:"type"`
	RoomID          domain.RoomID `json:"room_id"`
	DurationSeconds int64         `json:"duration_seconds"`
}

func NewCallEnded(roomID domain.RoomID, durationSeconds int64) CallEndedEvent {
	return CallEndedEvent{Type: EventCallEnded, RoomID: roomID, DurationSeconds: durationSeconds}
}

type RecordWarningEvent struct {
	Type    string        `json:"type"`
	RoomID  domain.RoomID `json:"room_id"`
	Message string        `json:"message"`
}

func NewRecordWarning(roomID domain.RoomID) RecordWarningEvent {
	return RecordWarningEvent{
		Type:    EventRecordWarning,
		RoomID:  roomID,
		Message: "call time could not be recorded, support has been notified",
	}
}
