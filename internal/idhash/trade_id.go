package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-revival-scanner/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(position_id|reason|remaining_after)
// Returns hex-encoded hash (64 characters).
//
// Determinism makes replayed exits idempotent: re-inserting the same slice
// hits the store's duplicate-key guard instead of double-recording a trade.
// Execution time is deliberately excluded so a close retried after a crash
// hashes identically to the first attempt. The triple is unique per
// legitimate trade: full-close reasons record remaining 0 at most once, and
// each take-profit tier fires at most once at a distinct remaining fraction.
func ComputeTradeID(
	positionID string,
	reason domain.ExitReason,
	remainingAfter float64,
) string {
	data := fmt.Sprintf("%s|%s|%.9f",
		positionID,
		string(reason),
		remainingAfter,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
