package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"duochat/internal/app/presence"
	"duochat/internal/app/registry"
	"duochat/internal/app/relay"
	"duochat/internal/app/server"
	"duochat/internal/app/worker"
	"duochat/internal/config"
	"duochat/internal/core/contracts"
	"duochat/internal/core/services"
	"duochat/internal/platform/logger"
	"duochat/internal/platform/metrics"
	"duochat/internal/platform/telemetry"
	"duochat/internal/plugins/twilio"
	"duochat/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("duochat exited", logging.Err(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewLogger(*cfg)
	log.Info("starting application", slog.String("storage", cfg.Service.Storage))

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", logging.Err(err))
		otelShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", logging.Err(err))
		}
	}()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	st, err := openStorage(ctx, log, *cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Realtime core
	hub := registry.NewRegistry(m)
	mirror := worker.NewPresenceWorker(log, st.presence, cfg.Worker.PresenceQueue)
	hub.Observe(presence.NewBroadcaster(log, mirror, m))
	router := relay.NewRouter(log, hub, m)

	var verifier contracts.PhoneVerifier
	if cfg.Twilio.Enabled() {
		verifier = twilio.NewTwilioClient(*cfg.Twilio)
	} else {
		log.Warn("twilio not configured, registration does not verify phone numbers")
	}

	// Core Services
	userSvc := services.NewUserService(log, st.users, verifier, hub, st.presence)
	tokenSvc := services.NewTokenService(cfg.SecretToken, cfg.TokenTTL)
	chatSvc := services.NewChatService(log, st.chats, userSvc, router, cfg.Relay.BroadcastChatUpdates)
	friendSvc := services.NewFriendService(log, st.friends, st.chats, st.users, st.tx, router)
	managerSvc := services.NewManagerService(log, chatSvc, friendSvc)

	srv := server.NewServer(log, *cfg, server.Deps{
		Users:    userSvc,
		Tokens:   tokenSvc,
		Friends:  friendSvc,
		Chats:    chatSvc,
		Manager:  managerSvc,
		Registry: hub,
		Limiter:  st.limiter,
		Metrics:  m,
		Gatherer: promReg,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mirror.Run(gctx) })
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Hijacked sockets are not tracked by the HTTP server.
		for _, e := range hub.Snapshot("") {
			e.Client.Close()
		}
		return err
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopped")
	return nil
}
