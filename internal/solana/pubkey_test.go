package solana

import (
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

func TestValidateAddress(t *testing.T) {
	// Wrapped SOL mint
	if err := ValidateAddress("So11111111111111111111111111111111111111112"); err != nil {
		t.Errorf("expected valid address, got %v", err)
	}

	if err := ValidateAddress("abc"); err == nil {
		t.Error("expected error for short address")
	}

	if err := ValidateAddress("not+base58!"); err == nil {
		t.Error("expected error for invalid base58")
	}
}

func TestIsOnCurve(t *testing.T) {
	onCurve := base58.Encode(edwards25519.NewGeneratorPoint().Bytes())
	if !IsOnCurve(onCurve) {
		t.Errorf("expected generator encoding %s to be on curve", onCurve)
	}

	// x = 0 with the sign bit set never decodes (RFC 8032, decoding step 4).
	raw := make([]byte, 32)
	raw[0] = 0x01
	raw[31] = 0x80
	offCurve := base58.Encode(raw)
	if IsOnCurve(offCurve) {
		t.Errorf("expected %s to be off curve", offCurve)
	}

	if IsOnCurve("abc") {
		t.Error("expected short string to be off curve")
	}
}
