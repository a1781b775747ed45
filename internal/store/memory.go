package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Memory implements Client with process-local maps. It backs unit tests and
// single-process runs where no external store is available. The semantics
// match the Redis implementation, including atomicity of the increment
// operations with respect to other Memory callers.
type Memory struct {
	mu     sync.Mutex
	sets   map[string]map[string]struct{}
	lists  map[string][]string
	hashes map[string]map[string]string
	subs   map[string][]*memorySubscription
	closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sets:   make(map[string]map[string]struct{}),
		lists:  make(map[string][]string),
		hashes: make(map[string]map[string]string),
		subs:   make(map[string][]*memorySubscription),
	}
}

func (m *Memory) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(members) == 0 {
		return nil
	}
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *Memory) SRem(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		return nil
	}
	for _, member := range members {
		delete(set, member)
	}
	if len(set) == 0 {
		delete(m.sets, key)
	}
	return nil
}

func (m *Memory) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	return members, nil
}

func (m *Memory) SIsMember(_ context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sets[key][member]
	return ok, nil
}

func (m *Memory) RPush(_ context.Context, key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append(m.lists[key], values...)
	return nil
}

func (m *Memory) LPop(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	if len(list) == 0 {
		return "", ErrQueueEmpty
	}
	head := list[0]
	m.lists[key] = list[1:]
	if len(m.lists[key]) == 0 {
		delete(m.lists, key)
	}
	return head, nil
}

func (m *Memory) LLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lists[key])), nil
}

func (m *Memory) HSet(_ context.Context, key string, fieldValues ...string) error {
	if len(fieldValues)%2 != 0 {
		return fmt.Errorf("hset %s: odd number of field/value arguments", key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]string)
		m.hashes[key] = hash
	}
	for i := 0; i < len(fieldValues); i += 2 {
		hash[fieldValues[i]] = fieldValues[i+1]
	}
	return nil
}

func (m *Memory) HGet(_ context.Context, key, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.hashes[key][field]
	return value, ok, nil
}

func (m *Memory) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for field, value := range m.hashes[key] {
		out[field] = value
	}
	return out, nil
}

func (m *Memory) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incrLocked(key, field, delta)
}

func (m *Memory) HIncrByBounded(_ context.Context, key, field string, delta, min, max int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, err := m.incrLocked(key, field, delta)
	if err != nil {
		return 0, err
	}
	if value < min {
		value = min
	} else if value > max {
		value = max
	}
	m.hashes[key][field] = strconv.FormatInt(value, 10)
	return value, nil
}

func (m *Memory) incrLocked(key, field string, delta int64) (int64, error) {
	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]string)
		m.hashes[key] = hash
	}
	var current int64
	if raw, ok := hash[field]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %s of %s is not an integer: %w", field, key, err)
		}
		current = parsed
	}
	current += delta
	hash[field] = strconv.FormatInt(current, 10)
	return current, nil
}

func (m *Memory) HDel(_ context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.hashes[key]
	if !ok {
		return nil
	}
	for _, field := range fields {
		delete(hash, field)
	}
	if len(hash) == 0 {
		delete(m.hashes, key)
	}
	return nil
}

func (m *Memory) HLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.hashes[key])), nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.sets, key)
		delete(m.lists, key)
		delete(m.hashes, key)
	}
	return nil
}

func (m *Memory) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs[channel] {
		select {
		case sub.messages <- append([]byte(nil), payload...):
		default:
			// Slow subscriber: drop rather than block the publisher.
		}
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, channel string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := &memorySubscription{
		store:    m,
		channel:  channel,
		messages: make(chan []byte, 64),
	}
	m.subs[channel] = append(m.subs[channel], sub)
	return sub, nil
}

func (m *Memory) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("store closed")
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memorySubscription struct {
	store    *Memory
	channel  string
	messages chan []byte
	once     sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte {
	return s.messages
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.store.mu.Lock()
		subs := s.store.subs[s.channel]
		for i, sub := range subs {
			if sub == s {
				s.store.subs[s.channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.store.mu.Unlock()
		close(s.messages)
	})
	return nil
}
