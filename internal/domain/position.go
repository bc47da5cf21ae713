package domain

// PositionStatus represents the lifecycle state of a simulated position.
type PositionStatus string

const (
	PositionOpen            PositionStatus = "OPEN"
	PositionPartiallyClosed PositionStatus = "PARTIALLY_CLOSED"
	PositionClosed          PositionStatus = "CLOSED"
)

// String returns the string representation of PositionStatus.
func (s PositionStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s PositionStatus) IsValid() bool {
	return s == PositionOpen || s == PositionPartiallyClosed || s == PositionClosed
}

// Terminal reports whether the status admits no further transitions.
func (s PositionStatus) Terminal() bool {
	return s == PositionClosed
}

// ExitReason identifies which rule closed (part of) a position.
type ExitReason string

const (
	ExitStopLoss    ExitReason = "STOP_LOSS"
	ExitTakeProfit1 ExitReason = "TAKE_PROFIT_1"
	ExitTakeProfit2 ExitReason = "TAKE_PROFIT_2"
	ExitFailed      ExitReason = "FAILED_EXIT"
	ExitExpired     ExitReason = "EXPIRED"
	ExitManual      ExitReason = "MANUAL"
)

// String returns the string representation of ExitReason.
func (r ExitReason) String() string {
	return string(r)
}

// IsValid checks if the exit reason is a valid value.
func (r ExitReason) IsValid() bool {
	switch r {
	case ExitStopLoss, ExitTakeProfit1, ExitTakeProfit2, ExitFailed, ExitExpired, ExitManual:
		return true
	}
	return false
}

// Position is a simulated position over one token.
// Corresponds to the positions table in PostgreSQL.
//
// Invariants: RemainingFraction is in [0,1] and never increases; Status moves
// OPEN -> PARTIALLY_CLOSED -> CLOSED only; a CLOSED position is immutable.
type Position struct {
	ID           string // PRIMARY KEY, uuid
	TokenAddress string
	Symbol       string

	EntryPrice  float64 // actual fill after entry slippage
	EntryTime   int64   // Unix timestamp in milliseconds
	SizeUSD     float64 // cash committed at open
	EntryFeeUSD float64 // booked into RealizedPnLUSD at open
	Quantity    float64 // token quantity bought

	RemainingFraction float64 // fraction of Quantity still held
	Status            PositionStatus
	RealizedPnLUSD    float64     // accumulates per exit slice, starts at -EntryFeeUSD
	ExitReason        *ExitReason // nil until CLOSED

	EntryScore float64 // composite score at open

	// FiredTiers records take-profit tier indices that already executed;
	// each tier fires at most once per position.
	FiredTiers []int

	// ExitRetries counts consecutive simulated exit failures; reset on a
	// successful exit slice.
	ExitRetries int

	ClosedAt  *int64 // Unix timestamp in milliseconds
	UpdatedAt int64
}

// Open reports whether the position still holds any quantity.
func (p *Position) Open() bool {
	return p.Status == PositionOpen || p.Status == PositionPartiallyClosed
}

// RemainingQuantity returns the token quantity still held.
func (p *Position) RemainingQuantity() float64 {
	return p.Quantity * p.RemainingFraction
}

// TierFired reports whether the take-profit tier at index already executed.
func (p *Position) TierFired(index int) bool {
	for _, t := range p.FiredTiers {
		if t == index {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe for lock-free reads.
func (p *Position) Clone() *Position {
	cp := *p
	if p.ExitReason != nil {
		r := *p.ExitReason
		cp.ExitReason = &r
	}
	if p.ClosedAt != nil {
		ts := *p.ClosedAt
		cp.ClosedAt = &ts
	}
	if p.FiredTiers != nil {
		cp.FiredTiers = append([]int(nil), p.FiredTiers...)
	}
	return &cp
}
