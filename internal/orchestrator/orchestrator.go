// Package orchestrator ties the discovery funnel to the paper trader.
// It coordinates: scan → persist funnel/scores → gate candidates into
// positions, and in continuous mode keeps the scan ticker, the position
// monitor and the dashboard listener running until shutdown.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-revival-scanner/internal/config"
	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/metrics"
	"solana-revival-scanner/internal/notify"
	"solana-revival-scanner/internal/observability"
	"solana-revival-scanner/internal/paper"
	"solana-revival-scanner/internal/pipeline"
	"solana-revival-scanner/internal/storage"
)

// ErrScanInProgress is returned when a scan cycle is requested while the
// previous one is still running.
var ErrScanInProgress = errors.New("scan cycle already running")

// Scanner runs one discovery funnel pass. Implemented by pipeline.Pipeline.
type Scanner interface {
	Run(ctx context.Context) (*pipeline.ScanResult, error)
}

// Book is the slice of the paper manager the orchestrator drives. The
// manager re-checks score, position cap and cash inside Open; the
// orchestrator never trusts upstream gating alone.
type Book interface {
	Open(ctx context.Context, cand *domain.Candidate, sizeUSD float64) (*domain.Position, error)
	OpenPositions() []*domain.Position
	Portfolio(marks map[string]float64) *domain.PortfolioSnapshot
}

// Runner is a long-running loop stopped by context cancellation.
// Implemented by monitor.Loop.
type Runner interface {
	Run(ctx context.Context) error
}

// Options for creating an Orchestrator.
type Options struct {
	Config  config.Config
	Scanner Scanner
	Book    Book
	Monitor Runner // optional; nil runs continuous mode without exit monitoring

	Scores storage.ScoreStore
	Funnel storage.FunnelStore
	Trades storage.TradeStore

	// Metrics recomputes the cached performance summary after each cycle
	// and backs the /summary endpoint. Optional.
	Metrics *metrics.Aggregator

	Notifier notify.Notifier

	// ListenAddr is the dashboard bind address for continuous mode.
	// Empty disables the HTTP surface.
	ListenAddr string

	Logger zerolog.Logger
	Now    func() time.Time
}

// Orchestrator coordinates scan cycles and the continuous trading loop.
type Orchestrator struct {
	cfg      config.Config
	scanner  Scanner
	book     Book
	monitor  Runner
	scores   storage.ScoreStore
	funnel   storage.FunnelStore
	trades   storage.TradeStore
	metrics  *metrics.Aggregator
	notifier notify.Notifier
	addr     string
	log      zerolog.Logger
	now      func() time.Time

	mu          sync.Mutex
	startedAt   time.Time
	scanRunning bool
	scanRuns    int
	lastScanAt  time.Time
	lastScanID  string
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		cfg:      opts.Config,
		scanner:  opts.Scanner,
		book:     opts.Book,
		monitor:  opts.Monitor,
		scores:   opts.Scores,
		funnel:   opts.Funnel,
		trades:   opts.Trades,
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
		addr:     opts.ListenAddr,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.notifier == nil {
		o.notifier = notify.NewLog(opts.Logger)
	}
	o.startedAt = o.now()
	return o
}

// CycleResult summarizes one scan cycle.
type CycleResult struct {
	ScanID     string
	Discovered int
	Candidates int
	Opened     int
	Errors     []string
}

// RunScanCycle executes one full cycle: funnel pass, funnel/score
// persistence, then entry gating best candidate first. Analytics writes and
// rejected opens are collected into Errors; only a failed scan or a dead
// context fails the cycle.
func (o *Orchestrator) RunScanCycle(ctx context.Context) (*CycleResult, error) {
	o.mu.Lock()
	if o.scanRunning {
		o.mu.Unlock()
		return nil, ErrScanInProgress
	}
	o.scanRunning = true
	o.mu.Unlock()

	start := o.now()
	defer func() {
		o.mu.Lock()
		o.scanRunning = false
		o.scanRuns++
		o.lastScanAt = o.now()
		o.mu.Unlock()
	}()

	res, err := o.scanner.Run(ctx)
	if err != nil {
		observability.RecordScanRun("error", o.now().Sub(start).Seconds())
		return nil, fmt.Errorf("scan: %w", err)
	}

	o.mu.Lock()
	o.lastScanID = res.ScanID
	o.mu.Unlock()

	result := &CycleResult{
		ScanID:     res.ScanID,
		Discovered: len(res.Funnel.Survivors(domain.PhaseDiscovered)),
		Candidates: len(res.Candidates),
	}

	if err := o.persistScan(ctx, res); err != nil {
		result.Errors = append(result.Errors, err.Error())
		o.log.Warn().Err(err).Str("scan_id", res.ScanID).Msg("scan persistence failed")
	}

	opened, errs := o.openCandidates(ctx, res.Candidates)
	result.Opened = opened
	result.Errors = append(result.Errors, errs...)
	if ctx.Err() != nil {
		observability.RecordScanRun("error", o.now().Sub(start).Seconds())
		return nil, ctx.Err()
	}

	if o.metrics != nil {
		if _, err := o.metrics.Recompute(ctx); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("recompute summary: %v", err))
			o.log.Warn().Err(err).Msg("summary recompute failed")
		}
	}

	observability.RecordScanRun("success", o.now().Sub(start).Seconds())
	o.log.Info().
		Str("scan_id", res.ScanID).
		Int("discovered", result.Discovered).
		Int("candidates", result.Candidates).
		Int("opened", result.Opened).
		Int("errors", len(result.Errors)).
		Dur("took", o.now().Sub(start)).
		Msg("scan cycle complete")

	return result, nil
}

// persistScan appends the funnel stats and score rows of one scan. These are
// analytics rows, not state transitions: a failed write is reported upward
// but never blocks entry gating.
func (o *Orchestrator) persistScan(ctx context.Context, res *pipeline.ScanResult) error {
	if err := o.funnel.InsertBulk(ctx, res.FunnelStats()); err != nil {
		return fmt.Errorf("persist funnel stats: %w", err)
	}
	if rows := res.ScoreSnapshots(); len(rows) > 0 {
		if err := o.scores.InsertBulk(ctx, rows); err != nil {
			return fmt.Errorf("persist scores: %w", err)
		}
	}
	return nil
}

// openCandidates walks the scored candidates best first and opens paper
// positions until the book refuses. Tokens already held are skipped so a
// rescan never doubles up on the same mint. A position cap or cash rejection
// stops the walk; neither frees up mid-cycle.
func (o *Orchestrator) openCandidates(ctx context.Context, cands []*domain.Candidate) (int, []string) {
	held := make(map[string]bool)
	for _, p := range o.book.OpenPositions() {
		held[p.TokenAddress] = true
	}

	var opened int
	var errs []string
	for _, c := range cands {
		if ctx.Err() != nil {
			return opened, errs
		}
		if held[c.Address] {
			o.log.Debug().Str("symbol", c.Symbol).Msg("already holding, skipped")
			continue
		}

		p, err := o.book.Open(ctx, c, 0)
		switch {
		case err == nil:
		case errors.Is(err, paper.ErrScoreBelowThreshold):
			o.log.Debug().
				Str("symbol", c.Symbol).
				Float64("score", c.Scores.Composite).
				Msg("below entry threshold, skipped")
			continue
		case errors.Is(err, paper.ErrPositionLimit):
			o.log.Info().Int("opened", opened).Msg("position limit reached, gating stopped")
			return opened, errs
		case errors.Is(err, paper.ErrInsufficientCash):
			o.log.Info().Int("opened", opened).Msg("out of cash, gating stopped")
			return opened, errs
		default:
			errs = append(errs, fmt.Sprintf("open %s: %v", c.Address, err))
			o.log.Warn().Err(err).Str("symbol", c.Symbol).Msg("open failed")
			continue
		}

		opened++
		held[c.Address] = true
		observability.RecordPositionOpened()
		o.notifier.PositionOpened(p)
	}
	return opened, errs
}

// RunContinuous runs the scan scheduler, the monitor loop and the dashboard
// listener until ctx is cancelled or one of them fails.
func (o *Orchestrator) RunContinuous(ctx context.Context) error {
	o.log.Info().
		Dur("scan_interval", o.cfg.Discovery.ScanInterval()).
		Dur("monitor_interval", o.cfg.Monitor.Interval()).
		Msg("starting continuous mode")

	errCh := make(chan error, 2)

	go func() {
		if err := o.runScanScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("scan scheduler: %w", err)
		}
	}()

	if o.monitor != nil {
		go func() {
			if err := o.monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("monitor: %w", err)
			}
		}()
	}

	var srv *http.Server
	if o.addr != "" {
		srv = o.serveDashboard()
	}

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-errCh:
	}

	if srv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutCtx); serr != nil {
			o.log.Warn().Err(serr).Msg("dashboard shutdown failed")
		}
	}

	o.log.Info().Msg("continuous mode stopped")
	return err
}

// runScanScheduler runs one scan immediately and then one per tick.
func (o *Orchestrator) runScanScheduler(ctx context.Context) error {
	o.scheduledScan(ctx)

	ticker := time.NewTicker(o.cfg.Discovery.ScanInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.scheduledScan(ctx)
		}
	}
}

// scheduledScan absorbs cycle failures so the scheduler outlives them.
func (o *Orchestrator) scheduledScan(ctx context.Context) {
	if _, err := o.RunScanCycle(ctx); err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrScanInProgress) {
			return
		}
		o.log.Error().Err(err).Msg("scan cycle failed")
	}
}
