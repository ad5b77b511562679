package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TTLCache records keys for a bounded time. The visual asset resolver uses
// it to remember article pages whose image lookup already failed, so a
// repeat fetch cycle does not hammer the same dead URLs.
type TTLCache interface {
	Has(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, ttl time.Duration) error
	Close() error
}

// Key hashes an arbitrary string (usually a URL) into a stable cache key.
func Key(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}
