package auth

import (
	"context"
	"sync"
	"time"
)

// TokenBlacklist 定义了 Token 黑名单的存储操作接口
type TokenBlacklist interface {
	// Add 将 jti 加入黑名单，并使其在 Token 的原始过期时间点之后自动从黑名单中移除。
	Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error
	// IsBlacklisted 检查 jti 是否存在于黑名单中。
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// MemoryBlacklist keeps revoked jtis in process memory. Used when Redis is
// disabled and in tests; revocations do not survive a restart.
type MemoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryBlacklist returns an empty MemoryBlacklist.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{entries: make(map[string]time.Time)}
}

func (b *MemoryBlacklist) Add(_ context.Context, jti string, originalTokenExpTime time.Time) error {
	if !originalTokenExpTime.After(time.Now()) {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[jti] = originalTokenExpTime
	return nil
}

func (b *MemoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.entries[jti]
	if !ok {
		return false, nil
	}
	if !exp.After(time.Now()) {
		delete(b.entries, jti)
		return false, nil
	}
	return true, nil
}
