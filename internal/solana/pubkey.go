package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateAddress checks that address is a well-formed base58 32-byte key.
func ValidateAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("address is %d bytes, want 32", len(raw))
	}
	return nil
}

// IsOnCurve reports whether the address decodes to a valid ed25519 curve
// point. Program-derived addresses are off-curve by construction, so this
// separates wallet accounts from pool and vault authorities.
func IsOnCurve(address string) bool {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		return false
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return false
	}
	return true
}
