// Package session tracks which staff members are logged in. The dispatch
// worker iterates the active set; logout removes a member so no further
// background claims are made for it.
package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Registry records active staff sessions.
type Registry interface {
	// Add registers or refreshes staffID as active.
	Add(ctx context.Context, staffID string) error
	// Touch refreshes staffID and reports whether it was still active.
	Touch(ctx context.Context, staffID string) (bool, error)
	Remove(ctx context.Context, staffID string) error
	// Active lists staff ids seen within the idle window.
	Active(ctx context.Context) ([]string, error)
}

const defaultKey = "hotel-ops:sessions"

// RedisRegistry stores sessions in a sorted set scored by last-seen time,
// so every replica sees the same active set.
type RedisRegistry struct {
	client *redis.Client
	key    string
	idle   time.Duration
	now    func() time.Time
}

// NewRedisRegistry builds a registry on client.
func NewRedisRegistry(client *redis.Client, idle time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, key: defaultKey, idle: idle, now: time.Now}
}

func (r *RedisRegistry) cutoff() string {
	return strconv.FormatInt(r.now().Add(-r.idle).UnixMilli(), 10)
}

func (r *RedisRegistry) Add(ctx context.Context, staffID string) error {
	return r.client.ZAdd(ctx, r.key, redis.Z{Score: float64(r.now().UnixMilli()), Member: staffID}).Err()
}

func (r *RedisRegistry) Touch(ctx context.Context, staffID string) (bool, error) {
	score, err := r.client.ZScore(ctx, r.key, staffID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if int64(score) < r.now().Add(-r.idle).UnixMilli() {
		return false, r.client.ZRem(ctx, r.key, staffID).Err()
	}
	if err := r.client.ZAddXX(ctx, r.key, redis.Z{Score: float64(r.now().UnixMilli()), Member: staffID}).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisRegistry) Remove(ctx context.Context, staffID string) error {
	return r.client.ZRem(ctx, r.key, staffID).Err()
}

func (r *RedisRegistry) Active(ctx context.Context) ([]string, error) {
	cutoff := r.cutoff()
	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, r.key, "-inf", "("+cutoff)
	members := pipe.ZRangeByScore(ctx, r.key, &redis.ZRangeBy{Min: cutoff, Max: "+inf"})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return members.Val(), nil
}

// MemoryRegistry is the single-process Registry used without Redis.
type MemoryRegistry struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
	order    []string
	idle     time.Duration
	now      func() time.Time
}

// NewMemoryRegistry builds an in-process registry.
func NewMemoryRegistry(idle time.Duration) *MemoryRegistry {
	return &MemoryRegistry{lastSeen: map[string]time.Time{}, idle: idle, now: time.Now}
}

// WithClock overrides the registry clock.
func (m *MemoryRegistry) WithClock(now func() time.Time) *MemoryRegistry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

func (m *MemoryRegistry) Add(_ context.Context, staffID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lastSeen[staffID]; !ok {
		m.order = append(m.order, staffID)
	}
	m.lastSeen[staffID] = m.now()
	return nil
}

func (m *MemoryRegistry) Touch(_ context.Context, staffID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen, ok := m.lastSeen[staffID]
	if !ok {
		return false, nil
	}
	if m.expired(seen) {
		m.removeLocked(staffID)
		return false, nil
	}
	m.lastSeen[staffID] = m.now()
	return true, nil
}

func (m *MemoryRegistry) Remove(_ context.Context, staffID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(staffID)
	return nil
}

func (m *MemoryRegistry) Active(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, id := range append([]string(nil), m.order...) {
		if m.expired(m.lastSeen[id]) {
			m.removeLocked(id)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (m *MemoryRegistry) expired(seen time.Time) bool {
	return m.idle > 0 && m.now().Sub(seen) > m.idle
}

func (m *MemoryRegistry) removeLocked(staffID string) {
	delete(m.lastSeen, staffID)
	for i, id := range m.order {
		if id == staffID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}
