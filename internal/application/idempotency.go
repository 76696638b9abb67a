package application

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// deriveIdempotencyKey builds a deterministic key from the canonical
// parameters of a logically identical request, so that accidental retries
// collide even when the client supplies no explicit token.
func deriveIdempotencyKey(operation string, parts ...string) string {
	digest := blake2b.Sum256([]byte(operation + "\x00" + strings.Join(parts, "\x00")))
	return hex.EncodeToString(digest[:])
}
