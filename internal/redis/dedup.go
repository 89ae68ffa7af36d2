package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrEventAlreadyProcessed = errors.New("event already processed")
)

// EventDeduper claims webhook event ids so redelivered events are handled once.
type EventDeduper interface {
	Claim(ctx context.Context, eventID string) (string, error)
	Release(ctx context.Context, eventID, token string) error
}

type redisEventDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisEventDeduper creates a deduper that keeps one key per event id for ttl.
func NewRedisEventDeduper(client *redis.Client, ttl time.Duration) EventDeduper {
	return &redisEventDeduper{
		client: client,
		ttl:    ttl,
	}
}

func eventKey(eventID string) string {
	return fmt.Sprintf("event:processed:%s", eventID)
}

// Claim marks eventID as processed and returns the token needed to release
// the claim. A second claim within ttl returns ErrEventAlreadyProcessed.
func (d *redisEventDeduper) Claim(ctx context.Context, eventID string) (string, error) {
	token := uuid.NewString()

	ok, err := d.client.SetNX(ctx, eventKey(eventID), token, d.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("claim event: %w", err)
	}
	if !ok {
		return "", ErrEventAlreadyProcessed
	}
	return token, nil
}

var releaseScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

// Release drops a claim so a redelivery of the event is processed again.
// Claims held by another token are left alone.
func (d *redisEventDeduper) Release(ctx context.Context, eventID, token string) error {
	_, err := releaseScript.Run(ctx, d.client, []string{eventKey(eventID)}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release event: %w", err)
	}
	return nil
}
