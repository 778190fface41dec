// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// StateTTL bounds how long a user may take to finish a consent screen.
	StateTTL = 10 * time.Minute

	stateKeyPrefix = "oauth_state:"
)

// ErrStateNotFound is returned when a state value is unknown, expired or
// already used.
var ErrStateNotFound = errors.New("auth: unknown oauth state")

// PendingLogin is what the login handler remembers until the provider
// redirects back.
type PendingLogin struct {
	Provider string    `json:"provider"`
	Verifier string    `json:"verifier"`
	UserID   uuid.UUID `json:"user_id,omitempty"`
	ReturnTo string    `json:"return_to,omitempty"`
}

// StateStore keeps pending logins in Valkey. Each state can be taken once.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateStore creates a StateStore backed by client.
func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client, ttl: StateTTL}
}

// Put stores p under a fresh random state and returns the state.
func (s *StateStore) Put(ctx context.Context, p *PendingLogin) (string, error) {
	state, err := NewState()
	if err != nil {
		return "", fmt.Errorf("oauth state: %w", err)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("oauth state marshal: %w", err)
	}
	if err := s.client.Set(ctx, stateKeyPrefix+state, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("oauth state store: %w", err)
	}
	return state, nil
}

// Take returns and deletes the pending login for state.
func (s *StateStore) Take(ctx context.Context, state string) (*PendingLogin, error) {
	if state == "" {
		return nil, ErrStateNotFound
	}
	payload, err := s.client.GetDel(ctx, stateKeyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("oauth state get: %w", err)
	}

	var p PendingLogin
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("oauth state unmarshal: %w", err)
	}
	return &p, nil
}
