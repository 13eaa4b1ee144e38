package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/avdeev/tandem/internal/app"
	"github.com/avdeev/tandem/internal/domain"
)

type queuePayload struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id" validate:"required"`
}

type roomPayload struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id" validate:"required"`
}

// handleEvent routes one inbound frame to exactly one component. Every
// frame yields a single outcome: a notification from the component, a
// targeted error, or a silent forward.
func (ctl *Controller) handleEvent(ctx context.Context, id domain.ConnID, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad json")
		ctl.Notify.Send(id, NewError("bad_payload", "malformed event"))
		return
	}

	switch env.Type {
	case KindJoinQueue:
		p, ok := ctl.queuePayload(id, data)
		if !ok {
			return
		}
		if err := ctl.Matchmaker.JoinQueue(ctx, id, domain.AccountID(p.AccountID)); err != nil {
			ctl.sendError(id, err)
		}

	case KindAnnounceAvailable:
		p, ok := ctl.queuePayload(id, data)
		if !ok {
			return
		}
		if err := ctl.Matchmaker.AnnounceAvailable(ctx, id, domain.AccountID(p.AccountID)); err != nil {
			ctl.sendError(id, err)
		}

	case KindCallOffer, KindCallAnswer, KindICECandidate, KindAudioToggle, KindVideoToggle:
		var p roomPayload
		if err := json.Unmarshal(data, &p); err != nil || ctl.validate.Struct(p) != nil {
			ctl.Notify.Send(id, NewError("bad_payload", "room_id required"))
			return
		}
		if err := ctl.Relay.Forward(domain.RoomID(p.RoomID), id, data); err != nil {
			ctl.sendError(id, err)
		}

	case KindEndCall:
		var p roomPayload
		if err := json.Unmarshal(data, &p); err != nil || ctl.validate.Struct(p) != nil {
			ctl.Notify.Send(id, NewError("bad_payload", "room_id required"))
			return
		}
		// On success the ledger notifies both members itself.
		if _, err := ctl.Ledger.EndSession(ctx, domain.RoomID(p.RoomID)); err != nil {
			ctl.sendError(id, err)
		}

	case KindCancel:
		ctl.Matchmaker.Leave(id)

	case KindPing:
		ctl.Notify.Send(id, NewPong())

	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
		ctl.Notify.Send(id, NewError("unknown_event", "unknown event type"))
	}
}

func (ctl *Controller) queuePayload(id domain.ConnID, data []byte) (queuePayload, bool) {
	var p queuePayload
	if err := json.Unmarshal(data, &p); err != nil || ctl.validate.Struct(p) != nil {
		ctl.Notify.Send(id, NewError("bad_payload", "account_id required"))
		return p, false
	}
	return p, true
}

// sendError converts a component rejection into a targeted error event.
// Rejections are local: the connection stays usable.
func (ctl *Controller) sendError(id domain.ConnID, err error) {
	kind := "internal"
	switch {
	case errors.Is(err, app.ErrRoleMismatch):
		kind = "role_mismatch"
	case errors.Is(err, app.ErrAlreadyActive):
		kind = "already_active"
	case errors.Is(err, app.ErrInvalidMatch):
		kind = "invalid_match"
	case errors.Is(err, app.ErrRoomNotFound):
		kind = "room_not_found"
	case errors.Is(err, app.ErrAlreadyCompleted):
		kind = "already_completed"
	case errors.Is(err, app.ErrIdentity):
		kind = "identity_failure"
	}
	log.Info().Err(err).Str("module", "signal").
		Str("conn", string(id)).
		Str("kind", kind).
		Msg("rejected event")
	ctl.Notify.Send(id, NewError(kind, err.Error()))
}
