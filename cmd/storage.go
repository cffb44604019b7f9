package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"duochat/internal/config"
	"duochat/internal/core/contracts"
	"duochat/internal/core/domain"
	"duochat/internal/core/services"
	"duochat/internal/plugins/memory"
	"duochat/internal/plugins/postgres"
	redisPlugin "duochat/internal/plugins/redis"
	"duochat/pkg/logging"
)

// storage bundles the gateways selected by service.storage.
type storage struct {
	users    domain.UserRepository
	chats    domain.ChatRepository
	friends  domain.FriendRequestRepository
	presence contracts.PresenceStore
	limiter  contracts.RateLimiter
	tx       services.Transactor

	pdb *sql.DB
	rdb *redis.Client
}

func openStorage(ctx context.Context, log *slog.Logger, cfg config.Config) (*storage, error) {
	if cfg.Service.Storage == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		return &storage{
			users:    memory.NewUserRepository(),
			chats:    memory.NewChatRepository(),
			friends:  memory.NewFriendRequestRepository(),
			presence: memory.NewPresenceStore(),
			limiter:  memory.NewRateLimiter(),
			tx:       services.NopTxManager{},
		}, nil
	}

	pdb, err := postgres.New(ctx, *cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	log.Info("postgres connected")
	rdb, err := redisPlugin.NewRedisClient(ctx, *cfg.Redis)
	if err != nil {
		pdb.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	log.Info("redis connected")
	return &storage{
		users:    postgres.NewUserRepository(pdb),
		chats:    postgres.NewChatRepo(pdb),
		friends:  postgres.NewFriendRequestRepo(pdb),
		presence: redisPlugin.NewRedisPresenceStore(rdb),
		limiter:  redisPlugin.NewRedisRateLimiter(rdb),
		tx:       services.NewTxManager(pdb),
		pdb:      pdb,
		rdb:      rdb,
	}, nil
}

func (s *storage) Close() {
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			slog.Error("redis close failed", logging.Err(err))
		}
	}
	if s.pdb != nil {
		if err := s.pdb.Close(); err != nil {
			slog.Error("postgres close failed", logging.Err(err))
		}
	}
}
