// Package cache keeps sanitized chat replies so repeated prompts against an
// unchanged roster skip the model round trip.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const replyPrefix = "reply:"

// Cache stores chat replies. Implementations treat every failure as a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Key builds the cache key for prompt at a given roster revision, so any
// change to the roster makes earlier replies unreachable.
func Key(revision uint64, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("%s%d:%s", replyPrefix, revision, hex.EncodeToString(sum[:]))
}

// Nop is the cache used when Redis is not configured.
type Nop struct{}

func (Nop) Get(context.Context, string) (string, bool) { return "", false }
func (Nop) Set(context.Context, string, string)         {}
