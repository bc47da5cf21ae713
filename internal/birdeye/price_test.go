package birdeye

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"solana-revival-scanner/internal/source"
)

func TestClient_Price(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pricePath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("address"); got != testMint(1) {
			t.Errorf("expected address %s, got %s", testMint(1), got)
		}
		w.Write([]byte(`{"success":true,"data":{"value":0.0421,"updateUnixTime":1700000000}}`))
	})

	ctx := context.Background()
	price, err := client.Price(ctx, testMint(1))
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if price != 0.0421 {
		t.Errorf("expected price 0.0421, got %f", price)
	}
}

func TestClient_Price_Zero(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"value":0}}`))
	})

	ctx := context.Background()
	_, err := client.Price(ctx, testMint(1))
	if err == nil {
		t.Fatal("expected error for zero price")
	}
	if !source.IsMalformed(err) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestClient_Prices_Batching(t *testing.T) {
	var batches []int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != multiPricePath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		list := strings.Split(r.URL.Query().Get("list_address"), ",")
		batches = append(batches, len(list))

		prices := make(map[string]interface{}, len(list))
		for _, addr := range list {
			prices[addr] = map[string]interface{}{"value": 1.5}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    prices,
		})
	})

	addresses := make([]string, 150)
	for i := range addresses {
		addresses[i] = testMint(byte(i))
	}

	ctx := context.Background()
	prices, err := client.Prices(ctx, addresses)
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}

	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0] != 100 || batches[1] != 50 {
		t.Errorf("expected batch sizes 100 and 50, got %v", batches)
	}
	if len(prices) != 150 {
		t.Fatalf("expected 150 prices, got %d", len(prices))
	}
	if prices[addresses[0]] != 1.5 {
		t.Errorf("expected price 1.5, got %f", prices[addresses[0]])
	}
}

func TestClient_Prices_SkipsMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// One entry null, one zero: neither should survive
		fmt.Fprintf(w, `{"success":true,"data":{%q:{"value":2.5},%q:null,%q:{"value":0}}}`,
			testMint(1), testMint(2), testMint(3))
	})

	ctx := context.Background()
	prices, err := client.Prices(ctx, []string{testMint(1), testMint(2), testMint(3)})
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if len(prices) != 1 {
		t.Fatalf("expected 1 price, got %d", len(prices))
	}
	if prices[testMint(1)] != 2.5 {
		t.Errorf("expected price 2.5, got %f", prices[testMint(1)])
	}
}

func TestClient_Prices_Empty(t *testing.T) {
	hits := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
	})

	ctx := context.Background()
	prices, err := client.Prices(ctx, nil)
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("expected empty map, got %d entries", len(prices))
	}
	if hits != 0 {
		t.Errorf("expected no HTTP request, got %d", hits)
	}
}
