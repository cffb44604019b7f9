package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"duochat/internal/app/server/ws"
	"duochat/internal/config"
	"duochat/internal/core/contracts"
	"duochat/internal/core/services"
	"duochat/internal/platform/logger"
	"duochat/pkg/logging"
	"duochat/pkg/middleware"
)

type WSHandler struct {
	log      *slog.Logger
	hub      contracts.Registry
	manager  *services.ManagerService
	cfg      config.RelayConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(log *slog.Logger, hub contracts.Registry, manager *services.ManagerService, cfg config.RelayConfig) *WSHandler {
	return &WSHandler{
		log:     log,
		hub:     hub,
		manager: manager,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler upgrades the request and serves the connection until it closes. The
// connection starts unannounced; it joins the registry on its first join frame
// and leaves it on close.
func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.log)
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		log.ErrorContext(r.Context(), "ws handler - unauthorised missing user_id")
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("user.id", userID.String()))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade - ws upgrade failed", logging.Err(err))
		return
	}
	// The connection outlives the upgrade request.
	ctx := context.WithoutCancel(r.Context())
	socket := ws.NewWebSocket(ctx, conn, log, s.cfg.ReadLimit)
	client := ws.NewClient(socket, s.cfg.SendBuffer)
	sess := services.NewSession(s.hub, client, userID)
	log = log.With(logging.Conn(client.ConnID()))
	log.InfoContext(ctx, "ws handler - connection established", logging.User(userID.String()))

	defer s.manager.HandleDisconnect(ctx, sess)
	socket.ReadLoop(func(data []byte) {
		s.manager.HandleMessage(ctx, sess, data)
	})
	log.InfoContext(ctx, "ws handler - connection closed", logging.User(userID.String()))
}
