// Package redis backs logout revocation with Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"brewfeed/internal/auth"
)

// DefaultKeyPrefix namespaces revoked jtis.
const DefaultKeyPrefix = "brewfeed:revoked:"

// TokenBlacklist stores revoked jtis as keys that expire together with the
// token they revoke.
type TokenBlacklist struct {
	client redis.Cmdable
	prefix string
}

var _ auth.TokenBlacklist = (*TokenBlacklist)(nil)

// NewTokenBlacklist 创建一个基于 Redis 的黑名单。prefix 为空时使用 DefaultKeyPrefix。
func NewTokenBlacklist(client redis.Cmdable, prefix string) *TokenBlacklist {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &TokenBlacklist{client: client, prefix: prefix}
}

func (b *TokenBlacklist) key(jti string) string {
	return b.prefix + jti
}

// Add 将 jti 加入黑名单，键的 TTL 等于 Token 剩余的有效期。
func (b *TokenBlacklist) Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error {
	ttl := time.Until(originalTokenExpTime)
	if ttl <= 0 {
		// 已过期的 Token 会被 JWT 校验拒绝
		return nil
	}
	if err := b.client.Set(ctx, b.key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke jti %s: %w", jti, err)
	}
	return nil
}

// IsBlacklisted 检查 jti 是否在黑名单中。
func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked jti %s: %w", jti, err)
	}
	return n > 0, nil
}

// NewClient opens a Redis client and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
