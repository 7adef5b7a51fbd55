package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key returns a stable hex digest of the joined parts. Parts are
// separated by an unprintable byte so adjacent fields cannot collide.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
