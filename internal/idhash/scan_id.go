package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeScanID computes a deterministic scan_id using SHA256.
// Formula: SHA256(started_at|universe_size)
// Returns hex-encoded hash truncated to 16 characters; scan IDs key funnel
// and score rows, where a short prefix is enough and easier to grep in logs.
func ComputeScanID(startedAt int64, universeSize int) string {
	data := fmt.Sprintf("%d|%d", startedAt, universeSize)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}
