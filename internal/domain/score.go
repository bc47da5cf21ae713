package domain

// ScoreSnapshot is one scored token observation from a scan cycle.
// Corresponds to the score_snapshots table in ClickHouse (append-only).
type ScoreSnapshot struct {
	ScanID          string
	TokenAddress    string
	Symbol          string
	PriceScore      float64
	SmartMoneyScore float64
	VolumeScore     float64
	SocialScore     float64
	CompositeScore  float64
	SecurityFlagged bool // fail-open pass, no vendor data behind it
	ScoredAt        int64
}

// FunnelStat records the survivor set of one pipeline stage in one scan run.
// Corresponds to the funnel_stats table in ClickHouse (append-only).
type FunnelStat struct {
	ScanID        string
	Phase         Phase
	SurvivorCount int
	Survivors     []string // surviving token addresses
	RecordedAt    int64
}
