package content

import (
	"fmt"
	"hash/fnv"
)

// Fingerprint returns a deterministic short token for normalized clip text.
// The token is an FNV-1a 32-bit hash in hex. It is a dedup signal only:
// collisions are tolerated, and the algorithm is not a compatibility surface
// beyond one deployment's lifetime.
func Fingerprint(s string) string {
	h := fnv.New32a()
	// Write на fnv никогда не возвращает ошибку
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
