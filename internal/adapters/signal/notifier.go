package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avdeev/tandem/internal/app"
	"github.com/avdeev/tandem/internal/core"
	"github.com/avdeev/tandem/internal/domain"
)

// Notifier is the outbound half of the adapter: it resolves a
// connection id through the registry and writes JSON frames. It
// implements core.EventSink and app.RawSink.
type Notifier struct {
	Reg *app.Registry
}

func NewNotifier(reg *app.Registry) *Notifier {
	return &Notifier{Reg: reg}
}

func (n *Notifier) Send(id domain.ConnID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("event marshal")
		return
	}
	n.SendRaw(id, b)
}

func (n *Notifier) SendRaw(id domain.ConnID, f core.Frame) {
	conn, ok := n.Reg.Lookup(id)
	if !ok {
		log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("send to unknown connection")
		return
	}
	if err := conn.TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("send failed")
	}
}
