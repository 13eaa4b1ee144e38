package signal

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avdeev/tandem/internal/app"
	"github.com/avdeev/tandem/internal/config"
	"github.com/avdeev/tandem/internal/domain"
)

// Controller accepts websocket connections and routes their events to
// the matchmaker, relay and ledger. It keeps no state of its own.
type Controller struct {
	Reg        *app.Registry
	Matchmaker *app.Matchmaker
	Ledger     *app.Ledger
	Relay      *app.Relay
	Notify     *Notifier

	cfg      *config.Config
	validate *validator.Validate
}

func NewController(cfg *config.Config, reg *app.Registry, mm *app.Matchmaker, ledger *app.Ledger, relay *app.Relay, notify *Notifier) *Controller {
	return &Controller{
		Reg:        reg,
		Matchmaker: mm,
		Ledger:     ledger,
		Relay:      relay,
		Notify:     notify,
		cfg:        cfg,
		validate:   validator.New(),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and registers the connection. A
// fresh connection id is minted per socket; the cookie client token
// only scopes the browser session.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	connID := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").
		Str("conn", string(connID)).
		Str("client_token", c.GetString("client_token")).
		Msg("new WS connection")

	conn := newWSSignalConn(ws, ctl.cfg.SendBuffer)
	if ctl.cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.cfg.ReadLimit)
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Reg.Register(connID, conn, cancel)

	ctl.Notify.Send(connID, NewConnected(connID))

	go ctl.writePump(ctx, connID, conn)
	go ctl.readPump(ctx, connID, conn)
}
