// Package session keeps the opaque upstream token server-side, keyed by the
// JWT's session ID, so the local access token never embeds the upstream
// credential.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	redisclient "github.com/hondusoft/fieldsales-backend/pkg/redis"
)

// ErrSessionNotFound is returned when a session has expired or was revoked.
var ErrSessionNotFound = errors.New("session not found")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
}

// Manager stores and resolves upstream tokens in Redis.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// UpstreamTokenResolver is the read-only surface the auth middleware needs.
type UpstreamTokenResolver interface {
	UpstreamToken(ctx context.Context, sessionID string) (string, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, ttl time.Duration) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{store: client, keyer: client, ttl: ttl}, nil
}

// Store writes the upstream token under the session ID with the manager TTL.
func (m *Manager) Store(ctx context.Context, sessionID, upstreamToken string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(upstreamToken) == "" {
		return fmt.Errorf("upstream token is required")
	}
	return m.store.Set(ctx, m.keyer.SessionKey(sessionID), upstreamToken, m.ttl)
}

// UpstreamToken resolves the opaque upstream token for the session.
func (m *Manager) UpstreamToken(ctx context.Context, sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrSessionNotFound
	}
	token, err := m.store.Get(ctx, m.keyer.SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	if token == "" {
		return "", ErrSessionNotFound
	}
	return token, nil
}

// Revoke deletes the session, logging the rep out locally.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return m.store.Del(ctx, m.keyer.SessionKey(sessionID))
}
