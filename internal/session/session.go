// Package session keeps signed-in users and their Google tokens in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"prepwise/internal/model"
)

const keyPrefix = "prepwise:session:"

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Session is what a login cookie points at.
type Session struct {
	ID        string        `json:"id"`
	User      model.User    `json:"user"`
	Token     *oauth2.Token `json:"token"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Store persists sessions as JSON values with a TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore returns a Store that expires sessions after ttl.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Create stores a new session for user and returns it with a fresh id.
func (s *Store) Create(ctx context.Context, user model.User, tok *oauth2.Token) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		User:      user,
		Token:     tok,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session. Unknown or expired ids yield ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	data, err := s.rdb.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return &sess, nil
}

// UpdateToken replaces the stored token, keeping the remaining TTL.
func (s *Store) UpdateToken(ctx context.Context, id string, tok *oauth2.Token) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.Token = tok
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := s.rdb.SetArgs(ctx, Key(id), data, redis.SetArgs{KeepTTL: true, Mode: "XX"}).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("session update: %w", err)
	}
	return nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := s.rdb.Set(ctx, Key(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

// Key is the Redis key for a session id.
func Key(id string) string {
	return keyPrefix + id
}
