package birdeye

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-revival-scanner/internal/source"
)

// Wallet owners live on the ed25519 curve; program-derived owners do not.
func onCurveWallet() string {
	return base58.Encode(edwards25519.NewGeneratorPoint().Bytes())
}

func onCurveWallet2() string {
	g := edwards25519.NewGeneratorPoint()
	return base58.Encode(new(edwards25519.Point).Add(g, g).Bytes())
}

func offCurveOwner() string {
	// x = 0 with the sign bit set never decodes (RFC 8032, decoding step 4)
	raw := make([]byte, 32)
	raw[0] = 0x01
	raw[31] = 0x80
	return base58.Encode(raw)
}

func holderHandler(t *testing.T, holderBody, overviewBody string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case holdersPath:
			if got := r.URL.Query().Get("limit"); got != "10" {
				t.Errorf("expected limit 10, got %q", got)
			}
			w.Write([]byte(holderBody))
		case overviewPath:
			w.Write([]byte(overviewBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}
}

func TestClient_TopHolderShare(t *testing.T) {
	holderBody := fmt.Sprintf(`{"success":true,"data":{"items":[
		{"owner":%q,"uiAmount":100},
		{"owner":%q,"uiAmount":500},
		{"owner":%q,"uiAmount":50}]}}`,
		onCurveWallet(), offCurveOwner(), onCurveWallet2())
	overviewBody := `{"success":true,"data":{"supply":1000}}`

	client := newTestClient(t, holderHandler(t, holderBody, overviewBody))

	ctx := context.Background()
	share, err := client.TopHolderShare(ctx, testMint(1))
	if err != nil {
		t.Fatalf("TopHolderShare: %v", err)
	}

	// The 500-unit pool owner is off-curve and excluded: (100+50)/1000
	if share != 0.15 {
		t.Errorf("expected share 0.15, got %f", share)
	}
}

func TestClient_TopHolderShare_NoHolders(t *testing.T) {
	client := newTestClient(t, holderHandler(t,
		`{"success":true,"data":{"items":[]}}`,
		`{"success":true,"data":{"supply":1000}}`))

	ctx := context.Background()
	_, err := client.TopHolderShare(ctx, testMint(1))
	if err == nil {
		t.Fatal("expected error for empty holder list")
	}
	if !source.IsMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestClient_TopHolderShare_ZeroSupply(t *testing.T) {
	holderBody := fmt.Sprintf(`{"success":true,"data":{"items":[{"owner":%q,"uiAmount":100}]}}`,
		onCurveWallet())
	client := newTestClient(t, holderHandler(t, holderBody,
		`{"success":true,"data":{"supply":0}}`))

	ctx := context.Background()
	_, err := client.TopHolderShare(ctx, testMint(1))
	if err == nil {
		t.Fatal("expected error for zero supply")
	}
	if !source.IsMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestClient_TopHolderShare_Clamped(t *testing.T) {
	// Stale supply can undercount what the holder page reports
	holderBody := fmt.Sprintf(`{"success":true,"data":{"items":[{"owner":%q,"uiAmount":5000}]}}`,
		onCurveWallet())
	client := newTestClient(t, holderHandler(t, holderBody,
		`{"success":true,"data":{"supply":1000}}`))

	ctx := context.Background()
	share, err := client.TopHolderShare(ctx, testMint(1))
	if err != nil {
		t.Fatalf("TopHolderShare: %v", err)
	}
	if share != 1 {
		t.Errorf("expected share clamped to 1, got %f", share)
	}
}
