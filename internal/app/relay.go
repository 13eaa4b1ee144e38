package app

import (
	"github.com/rs/zerolog/log"

	"github.com/avdeev/tandem/internal/core"
	"github.com/avdeev/tandem/internal/domain"
)

// RawSink forwards an already-encoded frame to one connection. The
// relay never re-encodes signaling payloads.
type RawSink interface {
	SendRaw(id domain.ConnID, f core.Frame)
}

// Relay forwards call-setup and in-call control frames between the two
// members of a room. It is payload-opaque: offer, answer and candidate
// contents belong to the clients' media stacks.
type Relay struct {
	ledger *Ledger
	sink   RawSink
}

func NewRelay(ledger *Ledger, sink RawSink) *Relay {
	return &Relay{ledger: ledger, sink: sink}
}

// Forward delivers the frame verbatim to the other member of the room.
// The sender must itself be a member of an active room with that id.
func (r *Relay) Forward(roomID domain.RoomID, sender domain.ConnID, frame core.Frame) error {
	peer, err := r.ledger.ActivePeer(roomID, sender)
	if err != nil {
		return err
	}
	r.sink.SendRaw(peer, frame)
	log.Debug().Str("module", "app.relay").
		Str("room", string(roomID)).
		Str("from", string(sender)).
		Str("to", string(peer)).
		Msg("relayed frame")
	return nil
}
