package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChannelGlobalActivity is the pub/sub channel for the activity feed.
const ChannelGlobalActivity = "global-activity"

// RedisPublisher broadcasts events over Redis pub/sub. Activity goes to
// one global channel; odds updates go to a per-match channel so frontends
// subscribe only to the matches they display.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher creates a Redis pub/sub publisher.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) PublishActivity(ctx context.Context, a Activity) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, ChannelGlobalActivity, payload).Err()
}

func (p *RedisPublisher) PublishOddsUpdate(ctx context.Context, u OddsUpdate) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, MatchChannel(u.MatchID), payload).Err()
}

// MatchChannel returns the per-match odds pub/sub channel name.
func MatchChannel(matchID string) string {
	return fmt.Sprintf("match:%s:odds", matchID)
}
