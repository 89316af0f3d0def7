package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when the session id has no stored token.
var ErrSessionNotFound = errors.New("session not found")

type sessionCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Timeout   time.Duration
}

// SessionStore resolves browser session ids into the backend tokens the
// login flow stored under <prefix><session id>.
type SessionStore struct {
	client    sessionCommands
	closer    func() error
	keyPrefix string
}

// NewSessionStore connects to Redis and checks the connection.
func NewSessionStore(ctx context.Context, cfg Config) (*SessionStore, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &SessionStore{client: client, closer: client.Close, keyPrefix: cfg.KeyPrefix}, nil
}

func (s *SessionStore) LookupToken(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionNotFound
	}

	token, err := s.client.Get(ctx, s.keyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	if token == "" {
		return "", ErrSessionNotFound
	}
	return token, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
