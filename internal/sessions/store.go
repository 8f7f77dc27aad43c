package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
)

var ErrSessionNotFound = pkgerrors.New(pkgerrors.CodeSessionGone, "checkout session expired")

// Store keeps at most one session per buyer; Put overwrites.
type Store interface {
	Put(ctx context.Context, session Session) error
	Get(ctx context.Context, buyerID int64) (*Session, error)
	Delete(ctx context.Context, buyerID int64) error
}

// MemoryStore is a process-local Store for single-instance deployments and tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[int64]Session{}, now: time.Now}
}

func (m *MemoryStore) Put(_ context.Context, session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.BuyerID] = session
	return nil
}

func (m *MemoryStore) Get(_ context.Context, buyerID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[buyerID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Expired(m.now()) {
		delete(m.sessions, buyerID)
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (m *MemoryStore) Delete(_ context.Context, buyerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, buyerID)
	return nil
}

// Sweep drops every expired session and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SessionKey(buyerID int64) string
}

// RedisStore keeps sessions as JSON with a native key TTL so expiry needs no sweeper.
type RedisStore struct {
	client kv
	now    func() time.Time
}

func NewRedisStore(client kv) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStore{client: client, now: time.Now}, nil
}

func (r *RedisStore) Put(ctx context.Context, session Session) error {
	ttl := session.TTL(r.now())
	if ttl <= 0 {
		return r.Delete(ctx, session.BuyerID)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.client.SessionKey(session.BuyerID), string(payload), ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, buyerID int64) (*Session, error) {
	raw, err := r.client.Get(ctx, r.client.SessionKey(buyerID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode session")
	}
	if session.Expired(r.now()) {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (r *RedisStore) Delete(ctx context.Context, buyerID int64) error {
	if err := r.client.Del(ctx, r.client.SessionKey(buyerID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete session")
	}
	return nil
}
