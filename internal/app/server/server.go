package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"duochat/internal/app/server/handlers"
	"duochat/internal/config"
	"duochat/internal/core/contracts"
	"duochat/internal/core/services"
	"duochat/internal/platform/metrics"
	"duochat/pkg/middleware"
)

// Deps are the collaborators the HTTP surface routes to.
type Deps struct {
	Users    *services.UserService
	Tokens   *services.TokenService
	Friends  *services.FriendService
	Chats    *services.ChatService
	Manager  *services.ManagerService
	Registry contracts.Registry
	Limiter  contracts.RateLimiter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

type Server struct {
	log    *slog.Logger
	cfg    config.Config
	router chi.Router
	http   *http.Server
}

func NewServer(log *slog.Logger, cfg config.Config, deps Deps) *Server {
	s := &Server{
		log:    log,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.routes(deps)
	s.http = &http.Server{
		Addr:              cfg.Service.Add,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(d Deps) {
	users := handlers.NewUserHandler(s.log, d.Users, d.Tokens)
	friends := handlers.NewFriendHandler(s.log, d.Friends, d.Users)
	chats := handlers.NewChatHandler(s.log, d.Chats)
	wsHandler := handlers.NewWSHandler(s.log, d.Registry, d.Manager, *s.cfg.Relay)
	auth := middleware.AuthMiddleware(d.Tokens)

	r := s.router
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.TracerMiddleware(s.cfg.Service.Name))
	r.Use(middleware.RequestLogger(s.log))
	r.Use(chimw.Recoverer)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.With(auth).Get("/ws", wsHandler.Handler)

	rl := s.cfg.RateLimit
	apiLimit := middleware.RateLimit(d.Limiter, "api", rl.APILimit, rl.APIWindow, s.log, d.Metrics)
	chatsLimit := middleware.RateLimit(d.Limiter, "chats", rl.ChatsLimit, rl.ChatsWindow, s.log, d.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		r.Group(func(r chi.Router) {
			r.Use(apiLimit)
			r.Post("/users/register", users.Register)
			r.Post("/users/otp", users.RequestOTP)

			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Get("/users", users.List)
				r.Get("/users/{id}", users.Get)

				r.Post("/friend-requests", friends.Send)
				r.Get("/friend-requests", friends.List)
				r.Get("/friend-requests/pending", friends.Pending)
				r.Put("/friend-requests/{id}", friends.Resolve)
			})
		})

		r.Route("/chats", func(r chi.Router) {
			r.Use(chatsLimit)
			r.Use(auth)
			r.Get("/", chats.List)
			r.Get("/{id}", chats.Get)
			r.Post("/{id}/messages", chats.SendMessage)
			r.Put("/{id}/messages/{messageId}/status", chats.UpdateStatus)
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("server - start - listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
