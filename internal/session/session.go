// Package session keeps a server-side record of every issued login token
// in Redis, keyed by the token's jti. A JWT whose session record is gone
// (logout, admin revocation, TTL) no longer grants access, which gives us
// real server-issued sessions instead of trusting the client.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Session is the JSON blob stored per session id.
type Session struct {
	UserID    int64 `json:"uid"`
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

func key(id string) string        { return fmt.Sprintf("labstock:sess:%s", id) }
func userSetKey(uid int64) string { return fmt.Sprintf("labstock:user_sessions:%d", uid) }

// Create stores a new session and indexes it under its user, so all of a
// user's sessions can be revoked at once.
func (s *Store) Create(ctx context.Context, id string, userID int64) error {
	now := time.Now()
	b, _ := json.Marshal(Session{
		UserID:    userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(id), b, s.ttl)
	pipe.SAdd(ctx, userSetKey(userID), id)
	pipe.Expire(ctx, userSetKey(userID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Get returns the session for an id, or an error (redis.Nil when the
// session does not exist or has expired).
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete removes a single session (logout).
func (s *Store) Delete(ctx context.Context, id string) error {
	sess, _ := s.Get(ctx, id) // best effort, session may already be gone
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key(id))
	if sess != nil {
		pipe.SRem(ctx, userSetKey(sess.UserID), id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAllForUser drops every live session a user holds. Used when an
// admin rejects or removes an account.
func (s *Store) RevokeAllForUser(ctx context.Context, userID int64) error {
	ids, err := s.rdb.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, key(sid))
	}
	pipe.Del(ctx, userSetKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
