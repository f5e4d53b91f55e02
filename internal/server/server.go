package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"word-guess/internal/config"
	"word-guess/internal/db"
	"word-guess/internal/game"
	"word-guess/internal/hub"
	"word-guess/internal/logging"
	"word-guess/internal/presence"
)

type Server struct {
	cfg      config.Config
	repo     game.Repository
	sched    *game.Scheduler
	hub      *hub.Hub
	tracker  *presence.Tracker
	limiter  *rateLimiter
	upgrader websocket.Upgrader
	wsConfig hub.ConnConfig
}

type options struct {
	clock   clockwork.Clock
	sampler presence.Sampler
	sinks   []hub.Sink
	repo    game.Repository
}

type Option func(*options)

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func WithSampler(sampler presence.Sampler) Option {
	return func(o *options) {
		o.sampler = sampler
	}
}

func WithSink(sink hub.Sink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, sink)
	}
}

func WithRepository(repo game.Repository) Option {
	return func(o *options) {
		o.repo = repo
	}
}

// New wires the engine. A nil conn keeps everything in memory.
func New(conn *gorm.DB, cfg config.Config, opts ...Option) *Server {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	repo := o.repo
	if repo == nil {
		if conn != nil {
			repo = db.NewRepository(conn)
		} else {
			repo = game.NewMemoryRepository()
		}
	}

	hubOpts := make([]hub.Option, 0, len(o.sinks))
	for _, sink := range o.sinks {
		hubOpts = append(hubOpts, hub.WithSink(sink))
	}
	h := hub.New(hubOpts...)

	schedOpts := []game.Option{game.WithClock(o.clock)}
	if cfg.DeadlineEnforcement {
		schedOpts = append(schedOpts, game.WithDeadlineEnforcement())
	}
	sched := game.NewScheduler(repo, h, game.Config{
		RoundsPerGame: cfg.RoundsPerGame,
		RoundDuration: cfg.RoundDuration(),
		RoundPause:    cfg.RoundPause(),
	}, schedOpts...)

	sampler := o.sampler
	if sampler == nil {
		sampler = presence.NewProbabilitySampler(cfg.SweepProbability, nil)
	}
	tracker := presence.NewTracker(presence.NewMemoryStore(o.clock), sched, sampler, cfg.PresenceTTL())
	h.UseMembership(&presentMembership{sched: sched, tracker: tracker})

	return &Server{
		cfg:      cfg,
		repo:     repo,
		sched:    sched,
		hub:      h,
		tracker:  tracker,
		limiter:  newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, o.clock),
		upgrader: hub.NewUpgrader(),
		wsConfig: hub.DefaultConnConfig(),
	}
}

func (s *Server) Scheduler() *game.Scheduler {
	return s.sched
}

func (s *Server) Close() {
	s.sched.Close()
}

func (s *Server) Handler() http.Handler {
	registerValidators()

	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(), s.cors())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/users", s.handleCreateUser)

	games := router.Group("/games")
	games.GET("", s.handleListGames)
	games.POST("", s.requireUser, s.handleCreateGame)
	games.GET("/:gameID", s.handleShowGame)
	games.DELETE("/:gameID", s.requireUser, s.handleDeleteGame)
	games.POST("/:gameID/join", s.requireUser, s.handleJoinGame)
	games.POST("/:gameID/start", s.requireUser, s.handleStartGame)
	games.POST("/:gameID/heartbeat", s.requireUser, s.handleHeartbeat)
	games.GET("/:gameID/players", s.handleSnapshot)
	games.POST("/:gameID/next_round", s.requireUser, s.handleNextRound)
	games.POST("/:gameID/end_round", s.requireUser, s.handleEndRound)
	games.POST("/:gameID/guess", s.requireUser, s.handleGuess)

	router.GET("/ws/games/:gameID", s.handleWebsocket)
	return router
}

func (s *Server) cors() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", userHeader, logging.RequestIDHeader},
		ExposeHeaders: []string{logging.RequestIDHeader},
	}
	if len(s.cfg.CORSOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.CORSOrigins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
