package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avdeev/tandem/internal/adapters/signal"
	"github.com/avdeev/tandem/internal/app"
	"github.com/avdeev/tandem/internal/config"
)

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("TandemSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client_token", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	api.GET("/stats", statsHandler(ctl.Reg, ctl.Matchmaker, ctl.Ledger))

	return r
}

type statsResponse struct {
	Connections       int `json:"connections"`
	WaitingStudents   int `json:"waiting_students"`
	AvailableTeachers int `json:"available_teachers"`
	ActiveRooms       int `json:"active_rooms"`
}

func statsHandler(reg *app.Registry, mm *app.Matchmaker, ledger *app.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		students, teachers := mm.WaitingCounts()
		c.JSON(http.StatusOK, statsResponse{
			Connections:       reg.Count(),
			WaitingStudents:   students,
			AvailableTeachers: teachers,
			ActiveRooms:       ledger.ActiveCount(),
		})
	}
}
