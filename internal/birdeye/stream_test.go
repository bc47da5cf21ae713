package birdeye

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:  func(r *http.Request) bool { return true },
	Subprotocols: []string{subProtocol},
}

func TestStream_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("x-api-key"); got != "test-key" {
			t.Errorf("expected x-api-key test-key, got %q", got)
		}
		if got := r.Header.Get("Sec-WebSocket-Protocol"); got != subProtocol {
			t.Errorf("expected subprotocol %s, got %q", subProtocol, got)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		// Keep connection open
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	stream, err := NewStream(ctx, wsURL, "test-key", zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer stream.Close()

	if stream.closed.Load() {
		t.Error("stream should not be closed")
	}
}

func TestStream_WatchAndReceive(t *testing.T) {
	addr := testMint(1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		// Read subscribe request
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req streamMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Type != "SUBSCRIBE_PRICE" {
			t.Errorf("expected SUBSCRIBE_PRICE, got %s", req.Type)
		}

		var query priceQuery
		if err := json.Unmarshal(req.Data, &query); err != nil {
			t.Errorf("unmarshal query: %v", err)
			return
		}
		if query.QueryType != "simple" {
			t.Errorf("expected simple query, got %s", query.QueryType)
		}
		if query.Address != addr {
			t.Errorf("expected address %s, got %s", addr, query.Address)
		}
		if query.ChartType != chartType || query.Currency != "usd" {
			t.Errorf("unexpected query %+v", query)
		}

		// Send a price tick
		time.Sleep(50 * time.Millisecond)
		tick := map[string]interface{}{
			"type": "PRICE_DATA",
			"data": map[string]interface{}{
				"address":  addr,
				"c":        1.23,
				"unixTime": 1700000000,
			},
		}
		if err := c.WriteJSON(tick); err != nil {
			t.Errorf("write tick: %v", err)
			return
		}

		// Keep connection open
		for {
			_, _, err := c.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	stream, err := NewStream(ctx, wsURL, "test-key", zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer stream.Close()

	if err := stream.Watch(ctx, []string{addr}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// Wait for the tick
	select {
	case update := <-stream.Updates():
		if update.Address != addr {
			t.Errorf("expected address %s, got %s", addr, update.Address)
		}
		if update.PriceUSD != 1.23 {
			t.Errorf("expected price 1.23, got %f", update.PriceUSD)
		}
		if update.At.Unix() != 1700000000 {
			t.Errorf("expected timestamp 1700000000, got %d", update.At.Unix())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for price update")
	}
}

func TestStream_WatchMultiple(t *testing.T) {
	addrA, addrB := testMint(1), testMint(2)
	queryCh := make(chan priceQuery, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req streamMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		var query priceQuery
		if err := json.Unmarshal(req.Data, &query); err != nil {
			t.Errorf("unmarshal query: %v", err)
			return
		}
		queryCh <- query

		for {
			_, _, err := c.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	stream, err := NewStream(ctx, wsURL, "test-key", zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer stream.Close()

	if err := stream.Watch(ctx, []string{addrA, addrB}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	select {
	case query := <-queryCh:
		if query.QueryType != "complex" {
			t.Errorf("expected complex query, got %s", query.QueryType)
		}
		if !strings.Contains(query.Query, addrA) || !strings.Contains(query.Query, addrB) {
			t.Errorf("expected both addresses in query, got %q", query.Query)
		}
		if !strings.Contains(query.Query, " OR ") {
			t.Errorf("expected OR-joined clauses, got %q", query.Query)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for subscribe request")
	}

	if got := len(stream.Watched()); got != 2 {
		t.Errorf("expected 2 watched addresses, got %d", got)
	}
}

func TestStream_WatchEmpty(t *testing.T) {
	typeCh := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var req streamMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		typeCh <- req.Type

		for {
			_, _, err := c.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	stream, err := NewStream(ctx, wsURL, "test-key", zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer stream.Close()

	if err := stream.Watch(ctx, nil); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	select {
	case typ := <-typeCh:
		if typ != "UNSUBSCRIBE_PRICE" {
			t.Errorf("expected UNSUBSCRIBE_PRICE, got %s", typ)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for unsubscribe request")
	}

	if got := len(stream.Watched()); got != 0 {
		t.Errorf("expected empty watched set, got %d", got)
	}
}

func TestStream_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	stream, err := NewStream(ctx, wsURL, "test-key", zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}

	err = stream.Close()
	if err != nil {
		t.Errorf("Close: %v", err)
	}

	if !stream.closed.Load() {
		t.Error("stream should be closed")
	}

	// Updates channel is closed once the loops exit
	select {
	case _, ok := <-stream.Updates():
		if ok {
			t.Error("expected updates channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for updates channel to close")
	}

	// Double close should be safe
	err = stream.Close()
	if err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestStream_WatchAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	stream, err := NewStream(ctx, wsURL, "test-key", zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := stream.Watch(ctx, []string{testMint(1)}); err == nil {
		t.Error("expected error watching after close")
	}
}
