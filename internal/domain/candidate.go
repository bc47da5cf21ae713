package domain

// Phase is an ordinal marking the last pipeline stage a token passed.
type Phase int

const (
	PhaseDiscovered Phase = iota + 1
	PhasePrefiltered
	PhaseAgeVerified
	PhaseSecurityChecked
	PhaseScored
)

// String returns the phase name used in funnel reports and metrics labels.
func (p Phase) String() string {
	switch p {
	case PhaseDiscovered:
		return "discovered"
	case PhasePrefiltered:
		return "prefiltered"
	case PhaseAgeVerified:
		return "age_verified"
	case PhaseSecurityChecked:
		return "security_checked"
	case PhaseScored:
		return "scored"
	default:
		return "unknown"
	}
}

// IsValid checks if the phase is a valid value.
func (p Phase) IsValid() bool {
	return p >= PhaseDiscovered && p <= PhaseScored
}

// ScoreBreakdown holds the four weighted sub-scores and their composite.
// All values are in [0,1].
type ScoreBreakdown struct {
	Price      float64
	SmartMoney float64
	Volume     float64
	Social     float64
	Composite  float64
}

// Candidate is a token that survived the discovery funnel, together with its
// score components and the last phase it reached. Composite is the weighted
// sum of the four sub-scores, clamped to [0,1].
type Candidate struct {
	Token

	Scores   ScoreBreakdown
	Phase    Phase
	Security *SecurityReport // nil until stage 4 ran
	ScoredAt int64           // Unix timestamp in milliseconds
}
