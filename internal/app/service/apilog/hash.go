package apilog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// HashRequest produces a stable sha256 over the JSON form of a request
// payload. Identical payloads hash identically, so retried dispatch attempts
// for the same order can be recognized in the ledger.
func HashRequest(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
