// Package store provides the shared-state client used by every server
// process: keyed sets, lists, hashes, and publish/subscribe over a common
// store. Room membership, the matchmaking queue, and per-room player state
// all live behind this interface so that any process can serve any
// connection.
package store

import (
	"context"
	"errors"
)

// ErrQueueEmpty is returned by LPop when the list has no entries.
var ErrQueueEmpty = errors.New("store: queue empty")

// Subscription is a live pub/sub subscription to a single channel.
type Subscription interface {
	// Messages returns the channel delivering published payloads.
	// It is closed when the subscription is closed.
	Messages() <-chan []byte
	// Close tears down the subscription.
	Close() error
}

// Client is the fixed operation set the coordination layer requires from the
// shared store. All operations are single round trips; HIncrBy and
// HIncrByBounded are atomic on the store side and safe under concurrent
// callers from any process.
type Client interface {
	// SAdd adds members to the set at key. Present members are ignored.
	SAdd(ctx context.Context, key string, members ...string) error
	// SRem removes members from the set at key. Absent members are ignored.
	SRem(ctx context.Context, key string, members ...string) error
	// SMembers returns all members of the set at key; empty for unknown keys.
	SMembers(ctx context.Context, key string) ([]string, error)
	// SIsMember reports whether member is in the set at key.
	SIsMember(ctx context.Context, key, member string) (bool, error)

	// RPush appends values to the tail of the list at key.
	RPush(ctx context.Context, key string, values ...string) error
	// LPop removes and returns the head of the list at key.
	// Returns ErrQueueEmpty if the list is empty or unknown.
	LPop(ctx context.Context, key string) (string, error)
	// LLen returns the length of the list at key.
	LLen(ctx context.Context, key string) (int64, error)

	// HSet writes field/value pairs into the hash at key.
	HSet(ctx context.Context, key string, fieldValues ...string) error
	// HGet returns the value of field in the hash at key, with ok=false when
	// the field or hash is absent.
	HGet(ctx context.Context, key, field string) (string, bool, error)
	// HGetAll returns every field/value pair of the hash at key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HIncrBy atomically adds delta to the integer field, creating it at
	// delta if absent, and returns the new value.
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	// HIncrByBounded atomically adds delta to the integer field and clamps
	// the result into [min, max], returning the clamped value. An absent
	// field is treated as zero.
	HIncrByBounded(ctx context.Context, key, field string, delta, min, max int64) (int64, error)
	// HDel removes fields from the hash at key.
	HDel(ctx context.Context, key string, fields ...string) error
	// HLen returns the number of fields in the hash at key.
	HLen(ctx context.Context, key string) (int64, error)

	// Del removes keys of any kind.
	Del(ctx context.Context, keys ...string) error

	// Publish sends payload to every subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe opens a subscription to channel.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
	// Close releases all client resources.
	Close() error
}
