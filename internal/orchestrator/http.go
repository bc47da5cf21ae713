package orchestrator

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"solana-revival-scanner/internal/observability"
	"solana-revival-scanner/internal/storage"
)

// funnelRecentRows caps the /funnel response at ten scans of five stages.
const funnelRecentRows = 50

// serveDashboard starts the read-only HTTP surface in the background and
// returns the server for shutdown. Every endpoint reads copied snapshots or
// append-only stores; none mutates trading state.
func (o *Orchestrator) serveDashboard() *http.Server {
	srv := &http.Server{Addr: o.addr, Handler: o.routes()}

	go func() {
		o.log.Info().Str("addr", o.addr).Msg("dashboard listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.log.Error().Err(err).Msg("dashboard server failed")
		}
	}()

	return srv
}

func (o *Orchestrator) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", o.handleStatus)
	mux.HandleFunc("/positions", o.handlePositions)
	mux.HandleFunc("/trades", o.handleTrades)
	mux.HandleFunc("/funnel", o.handleFunnel)
	mux.HandleFunc("/summary", o.handleSummary)

	return mux
}

// StatusResponse is the JSON body of the /status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	StartedAt     time.Time `json:"started_at"`
	ScanRunning   bool      `json:"scan_running"`
	ScanRuns      int       `json:"scan_runs"`
	LastScanAt    time.Time `json:"last_scan_at"`
	LastScanID    string    `json:"last_scan_id"`
	OpenPositions int       `json:"open_positions"`
	CashUSD       float64   `json:"cash_usd"`
	EquityUSD     float64   `json:"equity_usd"`
}

func (o *Orchestrator) handleStatus(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	resp := StatusResponse{
		Status:      "running",
		Uptime:      o.now().Sub(o.startedAt).String(),
		StartedAt:   o.startedAt,
		ScanRunning: o.scanRunning,
		ScanRuns:    o.scanRuns,
		LastScanAt:  o.lastScanAt,
		LastScanID:  o.lastScanID,
	}
	o.mu.Unlock()

	// Positions without a live mark are valued at entry here; the monitor's
	// snapshots carry the marked equity curve.
	snap := o.book.Portfolio(nil)
	resp.OpenPositions = snap.OpenPositions
	resp.CashUSD = snap.CashUSD
	resp.EquityUSD = snap.EquityUSD

	writeJSON(w, resp)
}

func (o *Orchestrator) handlePositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, o.book.OpenPositions())
}

func (o *Orchestrator) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := o.trades.GetAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, trades)
}

func (o *Orchestrator) handleFunnel(w http.ResponseWriter, r *http.Request) {
	stats, err := o.funnel.GetRecent(r.Context(), funnelRecentRows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (o *Orchestrator) handleSummary(w http.ResponseWriter, r *http.Request) {
	if o.metrics == nil {
		http.Error(w, "summary not available", http.StatusNotFound)
		return
	}
	s, err := o.metrics.Cached(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "summary not computed yet", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, s)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
