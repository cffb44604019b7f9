package redis

import (
	"context"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"duochat/internal/core/domain"
)

const lastSeenKey = "presence:last_seen"

// RedisPresenceStore keeps one sorted set of user ids scored by the unix
// milliseconds they were last observed.
type RedisPresenceStore struct {
	rdb *redis.Client
}

func NewRedisPresenceStore(rdb *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{
		rdb: rdb,
	}
}

// MarkSeen records at for userID unless a later instant is already stored.
func (p *RedisPresenceStore) MarkSeen(ctx context.Context, userID domain.UserID, at time.Time) error {
	return p.rdb.ZAddGT(ctx, lastSeenKey, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: userID.String(),
	}).Err()
}

func (p *RedisPresenceStore) LastSeen(ctx context.Context, ids []domain.UserID) (map[domain.UserID]time.Time, error) {
	out := make(map[domain.UserID]time.Time, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	members := make([]string, len(ids))
	for i, id := range ids {
		members[i] = id.String()
	}
	scores, err := p.rdb.ZMScore(ctx, lastSeenKey, members...).Result()
	if err != nil {
		return nil, err
	}
	for i, score := range scores {
		// ZMSCORE reports absent members as nil, which the client maps to 0.
		if score == 0 || math.IsNaN(score) {
			continue
		}
		out[ids[i]] = time.UnixMilli(int64(score)).UTC()
	}
	return out, nil
}
