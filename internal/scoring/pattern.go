package scoring

import (
	"solana-revival-scanner/internal/domain"
)

// Granularity breakpoints by token age.
const (
	fineAgeCutoffHours   = 1000 // ~41 days
	mediumAgeCutoffHours = 4000 // ~166 days
)

// maxHistoryDays caps the fetched window for provider API limits.
const maxHistoryDays = 30

// minPatternCandles is the fewest closes the pattern analysis accepts.
const minPatternCandles = 10

// Pattern check bounds.
const (
	dumpSeverityMin  = 0.1
	dumpSeverityMax  = 0.5
	minRecoveryRatio = 1.3
	minVolumeRevival = 2.0
	higherLowsWindow = 12
	volumeWindow     = 6
)

// GranularityForAge picks the candle interval for a token age: fine candles
// for young tokens, coarse for old ones, so the whole lifetime fits in one
// fetch.
func GranularityForAge(ageHours float64) domain.Granularity {
	switch {
	case ageHours <= fineAgeCutoffHours:
		return domain.Granularity1H
	case ageHours <= mediumAgeCutoffHours:
		return domain.Granularity4H
	default:
		return domain.Granularity1D
	}
}

// HistoryDays returns how many days of history to fetch for a token age,
// capped at the provider limit.
func HistoryDays(ageHours float64) int {
	days := int(ageHours/24) + 1
	if days > maxHistoryDays {
		days = maxHistoryDays
	}
	return days
}

// PatternDetail carries the intermediate metrics behind a pattern score.
type PatternDetail struct {
	ATH            float64
	Floor          float64
	Current        float64
	DumpSeverity   float64 // floor/ATH
	RecoveryRatio  float64 // current/floor
	HigherLows     bool
	VolumeIncrease float64 // recent volume over floor-period volume
	Candles        int
}

// PatternScore rates the dump-floor-recovery shape of a price history in
// [0,1]. Four checks contribute 0.25 each: the token fell hard from its
// high, recovered meaningfully off the post-high floor, prints higher lows,
// and trades on revived volume. Histories shorter than ten candles score
// zero.
func PatternScore(candles []*domain.Candle) (float64, PatternDetail) {
	if len(candles) < minPatternCandles {
		return 0, PatternDetail{Candles: len(candles)}
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.VolumeUSD
	}

	// All-time high, first occurrence
	athIdx := 0
	for i, p := range closes {
		if p > closes[athIdx] {
			athIdx = i
		}
	}
	ath := closes[athIdx]

	// Floor after the high. A high on the last candle leaves no post-high
	// window; the floor degenerates to the last close.
	floorIdx := len(closes) - 1
	if athIdx < len(closes)-1 {
		floorIdx = athIdx
		for i := athIdx; i < len(closes); i++ {
			if closes[i] < closes[floorIdx] {
				floorIdx = i
			}
		}
	}
	floor := closes[floorIdx]
	current := closes[len(closes)-1]

	dump := 1.0
	if ath > 0 {
		dump = floor / ath
	}
	recovery := 1.0
	if floor > 0 {
		recovery = current / floor
	}

	higherLows := checkHigherLows(lastN(closes, higherLowsWindow))

	recentVol := 0.0
	if len(volumes) >= volumeWindow {
		recentVol = mean(volumes[len(volumes)-volumeWindow:])
	}
	floorVol := recentVol
	if floorIdx >= volumeWindow {
		hi := floorIdx + volumeWindow
		if hi > len(volumes) {
			hi = len(volumes)
		}
		floorVol = mean(volumes[floorIdx-volumeWindow : hi])
	}
	volIncrease := 1.0
	if floorVol > 0 {
		volIncrease = recentVol / floorVol
	}

	score := 0.0
	if dump >= dumpSeverityMin && dump <= dumpSeverityMax {
		score += 0.25
	}
	if recovery >= minRecoveryRatio {
		score += 0.25
	}
	if higherLows {
		score += 0.25
	}
	if volIncrease >= minVolumeRevival {
		score += 0.25
	}

	return score, PatternDetail{
		ATH:            ath,
		Floor:          floor,
		Current:        current,
		DumpSeverity:   dump,
		RecoveryRatio:  recovery,
		HigherLows:     higherLows,
		VolumeIncrease: volIncrease,
		Candles:        len(candles),
	}
}

// checkHigherLows reports whether the series prints at least two local
// minima in strictly ascending order.
func checkHigherLows(closes []float64) bool {
	if len(closes) < 3 {
		return false
	}

	var lows []float64
	for i := 1; i < len(closes)-1; i++ {
		if closes[i] < closes[i-1] && closes[i] < closes[i+1] {
			lows = append(lows, closes[i])
		}
	}
	if len(lows) < 2 {
		return false
	}

	for i := 0; i < len(lows)-1; i++ {
		if lows[i] >= lows[i+1] {
			return false
		}
	}
	return true
}

func lastN(vals []float64, n int) []float64 {
	if len(vals) <= n {
		return vals
	}
	return vals[len(vals)-n:]
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
