// Package session reads the Redis-backed sessions issued by the companion
// auth service. Galleryd only consumes identity — it never creates,
// refreshes, or destroys sessions; login and 2FA live elsewhere.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the session cookie set by the auth service.
	CookieName = "gd_session"

	// keyPrefix namespaces session keys in Redis.
	keyPrefix = "session:"
)

// Data is the session payload the auth service stores in Redis.
type Data struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store looks up sessions in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a read-only session store on the given Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get retrieves session data using the session ID from the request cookie.
// Returns nil when no valid session exists — absence is not an error.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil // No cookie = no session
	}

	payload, err := s.client.Get(ctx, keyPrefix+cookie.Value).Bytes()
	if err == redis.Nil {
		return nil, nil // Session expired or doesn't exist
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}

	return &data, nil
}
