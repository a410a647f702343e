package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoSession token 不存在或已过期
var ErrNoSession = errors.New("session not found")

const sessionKeyPrefix = "warga:session:"

// SessionStore 登录会话：token -> user_id
// 只保存身份，角色与 RT 范围每次请求从 admin_roles 重新解析
type SessionStore struct {
	kv  KV
	ttl time.Duration
}

func NewSessionStore(kv KV, ttl time.Duration) *SessionStore {
	return &SessionStore{kv: kv, ttl: ttl}
}

// Create issues an opaque token bound to userID.
func (s *SessionStore) Create(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user_id is required")
	}
	token := strings.ReplaceAll(uuid.New().String(), "-", "") + strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := s.kv.Set(ctx, sessionKeyPrefix+token, userID, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Resolve returns the user ID bound to token.
func (s *SessionStore) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}
	userID, err := s.kv.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	return userID, nil
}

// Delete 注销
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.kv.Del(ctx, sessionKeyPrefix+token)
}

// TTL 会话有效期
func (s *SessionStore) TTL() time.Duration { return s.ttl }
