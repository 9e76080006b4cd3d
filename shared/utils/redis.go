package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var (
	// RedisClient is nil when Redis is unavailable; session bookkeeping then
	// degrades to a no-op and authentication still works.
	RedisClient *redis.Client
	ctx         = context.Background()
)

// InitRedis initializes the Redis client from REDIS_HOST/REDIS_PORT.
func InitRedis() error {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	addr := fmt.Sprintf("%s:%s", redisHost, redisPort)

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		RedisClient = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return nil
}

// CloseRedis closes the Redis connection.
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// AccountSession is the login-session record kept in Redis, keyed by a hash
// of the access token so the token itself is never stored.
type AccountSession struct {
	SessionID  string    `json:"session_id"`
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsExpired reports whether the session is past its expiry.
func (s *AccountSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func tokenHash(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func sessionKey(accessToken string) string {
	return "token:session:" + tokenHash(accessToken)
}

// CreateAccountSession records a login session for an access token.
// Best-effort: returns nil session without error when Redis is disabled.
func CreateAccountSession(accessToken string, userID uuid.UUID, email, role string, ttl time.Duration) (*AccountSession, error) {
	if RedisClient == nil {
		return nil, nil
	}

	now := time.Now()
	session := &AccountSession{
		SessionID:  uuid.New().String(),
		UserID:     userID,
		Email:      email,
		Role:       role,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := RedisClient.Set(ctx, sessionKey(accessToken), data, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session in Redis: %w", err)
	}
	return session, nil
}

// GetAccountSession looks up the session for an access token.
func GetAccountSession(accessToken string) (*AccountSession, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	key := sessionKey(accessToken)
	data, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var session AccountSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.IsExpired() {
		RedisClient.Del(ctx, key)
		return nil, fmt.Errorf("session expired")
	}
	return &session, nil
}

// RevokeAccountSession removes the session for an access token.
func RevokeAccountSession(accessToken string) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Del(ctx, sessionKey(accessToken)).Err()
}

// RevokeAllUserSessions removes every session belonging to an account, used
// when an account is deactivated.
func RevokeAllUserSessions(userID uuid.UUID) error {
	if RedisClient == nil {
		return nil
	}

	keys, err := RedisClient.Keys(ctx, "token:session:*").Result()
	if err != nil {
		return fmt.Errorf("failed to scan session keys: %w", err)
	}

	for _, key := range keys {
		data, err := RedisClient.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var session AccountSession
		if json.Unmarshal([]byte(data), &session) == nil && session.UserID == userID {
			RedisClient.Del(ctx, key)
		}
	}
	return nil
}
