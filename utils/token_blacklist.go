package utils

import (
	"context"
	"sync"
	"time"
)

const revokedPrefix = "jwt:revoked:"

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.Mutex
)

// RevokeToken marks the token id (jti) revoked until the token would expire anyway.
// Redis is used when configured; the in-process map covers the rest.
func RevokeToken(id string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if id == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, revokedPrefix+id, "1", ttl).Err(); err == nil {
			return
		}
		Sugar.Warnw("token revoke fell back to memory", "jti", id)
	}

	revokedMu.Lock()
	defer revokedMu.Unlock()
	now := time.Now()
	for k, exp := range revoked {
		if now.After(exp) {
			delete(revoked, k)
		}
	}
	revoked[id] = expiresAt
}

// IsTokenRevoked reports whether RevokeToken was called for id and the entry is still live.
func IsTokenRevoked(id string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if n, err := rc.Exists(ctx, revokedPrefix+id).Result(); err == nil && n > 0 {
			return true
		}
	}
	revokedMu.Lock()
	exp, ok := revoked[id]
	revokedMu.Unlock()
	return ok && time.Now().Before(exp)
}
