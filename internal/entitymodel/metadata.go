package entitymodel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

var (
	versionOnce sync.Once
	version     string
)

// Version fingerprints the component schemas. It changes whenever a field,
// bound, enum value or default changes, so clients can detect stale models.
func Version() string {
	versionOnce.Do(func() {
		raw, err := json.Marshal(Components())
		if err != nil {
			return
		}
		sum := sha256.Sum256(raw)
		version = "1." + hex.EncodeToString(sum[:6])
	})
	return version
}
