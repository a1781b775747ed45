package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/arenalabs/arena/internal/config"
)

// hincrbyBounded applies an increment to a hash field and clamps the result
// into [min, max] in a single atomic step, closing the read-modify-write
// window a client-side HGET/HSET pair would leave open.
//
// KEYS[1]: hash key
// ARGV[1]: field, ARGV[2]: delta, ARGV[3]: min, ARGV[4]: max
var hincrbyBounded = redis.NewScript(`
local value = redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
local min = tonumber(ARGV[3])
local max = tonumber(ARGV[4])
if value < min then
    value = min
    redis.call('HSET', KEYS[1], ARGV[1], value)
elseif value > max then
    value = max
    redis.call('HSET', KEYS[1], ARGV[1], value)
end
return value
`)

// Redis implements Client over a Redis server using go-redis.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the store at the configured URL and verifies the
// connection with a ping.
//
// Precondition: cfg.URL must be a valid redis:// URL.
// Postcondition: Returns a connected Redis client or a non-nil error.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opts.DialTimeout = cfg.DialTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return r.client.SAdd(ctx, key, toAny(members)...).Err()
}

func (r *Redis) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return r.client.SRem(ctx, key, toAny(members)...).Err()
}

func (r *Redis) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.client.SMembers(ctx, key).Result()
}

func (r *Redis) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return r.client.SIsMember(ctx, key, member).Result()
}

func (r *Redis) RPush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	return r.client.RPush(ctx, key, toAny(values)...).Err()
}

func (r *Redis) LPop(ctx context.Context, key string) (string, error) {
	value, err := r.client.LPop(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrQueueEmpty
	}
	return value, err
}

func (r *Redis) LLen(ctx context.Context, key string) (int64, error) {
	return r.client.LLen(ctx, key).Result()
}

func (r *Redis) HSet(ctx context.Context, key string, fieldValues ...string) error {
	if len(fieldValues) == 0 {
		return nil
	}
	return r.client.HSet(ctx, key, toAny(fieldValues)...).Err()
}

func (r *Redis) HGet(ctx context.Context, key, field string) (string, bool, error) {
	value, err := r.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *Redis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return r.client.HGetAll(ctx, key).Result()
}

func (r *Redis) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	return r.client.HIncrBy(ctx, key, field, delta).Result()
}

func (r *Redis) HIncrByBounded(ctx context.Context, key, field string, delta, min, max int64) (int64, error) {
	result, err := hincrbyBounded.Run(ctx, r.client,
		[]string{key},
		field,
		strconv.FormatInt(delta, 10),
		strconv.FormatInt(min, 10),
		strconv.FormatInt(max, 10),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("running bounded hincrby: %w", err)
	}
	value, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result %T", result)
	}
	return value, nil
}

func (r *Redis) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return r.client.HDel(ctx, key, fields...).Err()
}

func (r *Redis) HLen(ctx context.Context, key string) (int64, error) {
	return r.client.HLen(ctx, key).Result()
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *Redis) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubsub := r.client.Subscribe(ctx, channel)
	// Confirm the subscription before handing it out, so a caller that
	// publishes right after Subscribe returns cannot miss the message.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}

	sub := &redisSubscription{
		pubsub:   pubsub,
		messages: make(chan []byte, 64),
	}
	go sub.pump()
	return sub, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type redisSubscription struct {
	pubsub   *redis.PubSub
	messages chan []byte
}

func (s *redisSubscription) pump() {
	defer close(s.messages)
	for msg := range s.pubsub.Channel() {
		s.messages <- []byte(msg.Payload)
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.messages
}

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
