package birdeye

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DefaultStreamURL is the Solana price stream endpoint.
const DefaultStreamURL = "wss://public-api.birdeye.so/socket/solana"

// subProtocol is required by the stream handshake.
const subProtocol = "echo-protocol"

// chartType is the candle interval the stream aggregates ticks into.
const chartType = "1m"

// PriceUpdate is one live price tick from the stream.
type PriceUpdate struct {
	Address  string
	PriceUSD float64
	At       time.Time
}

// StreamConfig configures stream connection behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Stream maintains the live price subscription feeding the monitor's price
// cache. The protocol carries one price subscription per connection, so
// Watch replaces the whole watched set on every call.
type Stream struct {
	endpoint string
	config   StreamConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// watched is the current subscription set, kept for resubscription
	// after reconnect.
	watched   []string
	watchedMu sync.RWMutex

	updates chan PriceUpdate

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool

	log zerolog.Logger
}

// NewStream connects to the price stream. endpoint is the socket URL without
// credentials; the API key is appended as a query parameter.
func NewStream(ctx context.Context, endpoint, apiKey string, logger zerolog.Logger, config *StreamConfig) (*Stream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &Stream{
		endpoint: endpoint + "?x-api-key=" + url.QueryEscape(apiKey),
		config:   cfg,
		updates:  make(chan PriceUpdate, 10000),
		done:     make(chan struct{}),
		log:      logger,
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	// Start reader goroutine
	s.wg.Add(1)
	go s.readLoop()

	// Start ping goroutine
	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// connect establishes the WebSocket connection.
func (s *Stream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{subProtocol},
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Watch replaces the watched address set. An empty set drops the price
// subscription entirely.
func (s *Stream) Watch(ctx context.Context, addresses []string) error {
	if s.closed.Load() {
		return fmt.Errorf("stream closed")
	}

	copied := make([]string, len(addresses))
	copy(copied, addresses)

	s.watchedMu.Lock()
	s.watched = copied
	s.watchedMu.Unlock()

	return s.sendSubscription(copied)
}

// Watched returns a copy of the current watched address set.
func (s *Stream) Watched() []string {
	s.watchedMu.RLock()
	defer s.watchedMu.RUnlock()

	out := make([]string, len(s.watched))
	copy(out, s.watched)
	return out
}

// Updates returns the live tick channel. It is closed when the stream closes.
func (s *Stream) Updates() <-chan PriceUpdate {
	return s.updates
}

// sendSubscription writes the subscription message for the given set.
func (s *Stream) sendSubscription(addresses []string) error {
	var msg streamRequest
	if len(addresses) == 0 {
		msg = streamRequest{Type: "UNSUBSCRIBE_PRICE"}
	} else {
		msg = streamRequest{Type: "SUBSCRIBE_PRICE", Data: buildPriceQuery(addresses)}
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// buildPriceQuery builds the subscription payload. A single address uses the
// simple form; multiple addresses need the complex OR query.
func buildPriceQuery(addresses []string) priceQuery {
	if len(addresses) == 1 {
		return priceQuery{
			QueryType: "simple",
			ChartType: chartType,
			Address:   addresses[0],
			Currency:  "usd",
		}
	}

	clauses := make([]string, len(addresses))
	for i, addr := range addresses {
		clauses[i] = fmt.Sprintf("(address = %s AND chartType = %s AND currency = usd)", addr, chartType)
	}
	return priceQuery{
		QueryType: "complex",
		Query:     strings.Join(clauses, " OR "),
	}
}

// Close closes the stream and the updates channel.
func (s *Stream) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	// Both loops have exited after Wait, so closing updates cannot race a
	// send.
	s.wg.Wait()
	close(s.updates)
	return nil
}

// readLoop reads messages from the socket and dispatches price ticks.
func (s *Stream) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// reconnect attempts to reconnect and restore the subscription.
func (s *Stream) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	// Wait before reconnecting
	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	// Close existing connection
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		s.log.Warn().Err(err).Msg("stream reconnect failed")
		// Will retry on next read error
		return
	}

	s.log.Info().Msg("stream reconnected")

	s.watchedMu.RLock()
	watched := make([]string, len(s.watched))
	copy(watched, s.watched)
	s.watchedMu.RUnlock()

	if len(watched) > 0 {
		if err := s.sendSubscription(watched); err != nil {
			s.log.Warn().Err(err).Msg("resubscribe after reconnect failed")
		}
	}
}

// handleMessage processes one incoming stream message.
func (s *Stream) handleMessage(message []byte) {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "PRICE_DATA":
		var ev priceEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			s.log.Debug().Err(err).Msg("bad price event")
			return
		}

		update := PriceUpdate{
			Address:  ev.Address,
			PriceUSD: ev.Close,
			At:       time.Unix(ev.UnixTime, 0),
		}

		// Block until we can send - never drop ticks
		select {
		case s.updates <- update:
		case <-s.done:
		}
	case "WELCOME":
		// Handshake greeting, nothing to do
	case "ERROR":
		s.log.Warn().Str("data", string(msg.Data)).Msg("stream error message")
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *Stream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}

// Stream message types

type streamRequest struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type streamMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type priceQuery struct {
	QueryType string `json:"queryType"`
	ChartType string `json:"chartType,omitempty"`
	Address   string `json:"address,omitempty"`
	Currency  string `json:"currency,omitempty"`
	Query     string `json:"query,omitempty"`
}

type priceEvent struct {
	Address  string  `json:"address"`
	Close    float64 `json:"c"`
	UnixTime int64   `json:"unixTime"`
}
