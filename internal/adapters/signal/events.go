package signal

import "github.com/avdeev/tandem/internal/domain"

// Inbound event kinds.
const (
	KindJoinQueue         = "join_queue"
	KindAnnounceAvailable = "announce_available"
	KindCallOffer         = "call_offer"
	KindCallAnswer        = "call_answer"
	KindICECandidate      = "ice_candidate"
	KindAudioToggle       = "audio_toggle"
	KindVideoToggle       = "video_toggle"
	KindEndCall           = "end_call"
	KindCancel            = "cancel"
	KindPing              = "ping"
)

// Adapter-owned outbound events. Component events (waiting, matched,
// call_ended, record_warning) live in the app package.
type ConnectedEvent struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connection_id"`
}

func NewConnected(id domain.ConnID) ConnectedEvent {
	return ConnectedEvent{Type: "connected", ConnectionID: id}
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func NewError(kind, message string) ErrorEvent {
	return ErrorEvent{Type: "error", Kind: kind, Message: message}
}

type PongEvent struct {
	Type string `json:"type"`
}

func NewPong() PongEvent {
	return PongEvent{Type: "pong"}
}
