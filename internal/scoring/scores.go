package scoring

import (
	"solana-revival-scanner/internal/domain"
	"solana-revival-scanner/internal/source"
)

// DefaultWhaleThresholdUSD is the trader position value counting as smart
// money.
const DefaultWhaleThresholdUSD = 100_000

// maxTradersChecked bounds the whale count to the top of the trader list.
const maxTradersChecked = 20

// minSustainedVolume24hUSD is the daily volume showing sustained activity.
const minSustainedVolume24hUSD = 50_000

// SmartMoneyScore counts whales (traders holding strictly more than the
// threshold) among the top traders and maps the count onto score tiers.
// Returns the score and the whale count.
func SmartMoneyScore(traders []source.TraderStat, whaleThresholdUSD float64) (float64, int) {
	if len(traders) > maxTradersChecked {
		traders = traders[:maxTradersChecked]
	}

	whales := 0
	for _, tr := range traders {
		if tr.ValueUSD > whaleThresholdUSD {
			whales++
		}
	}

	switch {
	case whales >= 5:
		return 1.0, whales
	case whales >= 3:
		return 0.75, whales
	case whales >= 2:
		return 0.5, whales
	case whales >= 1:
		return 0.25, whales
	default:
		return 0, whales
	}
}

// VolumeScore rates trading activity: half for sustained 24h volume, half
// for buys outpacing sells. Missing trade counts forfeit the buy-pressure
// half.
func VolumeScore(token *domain.Token) float64 {
	score := 0.0

	if token.Volume24hUSD > minSustainedVolume24hUSD {
		score += 0.5
	}

	var buys, sells int64
	if token.Buys1h != nil {
		buys = *token.Buys1h
	}
	if token.Sells1h != nil {
		sells = *token.Sells1h
	}
	if buys > sells {
		score += 0.5
	}

	return score
}

// SocialScore rates on-chain engagement in [0,1]. Each signal adds a tiered
// bonus and the sum is capped; a zero or missing signal adds nothing, so
// sparse enrichment data limits the score instead of failing it.
func SocialScore(token *domain.Token) float64 {
	score := 0.0

	if wallets := pval(token.UniqueWallets24h); wallets > 0 {
		switch {
		case wallets >= 500:
			score += 0.25
		case wallets >= 200:
			score += 0.15
		case wallets >= 100:
			score += 0.10
		}
	}

	if trades, ok := token.Trades1h(); ok && trades > 0 {
		switch {
		case trades >= 100:
			score += 0.25
		case trades >= 50:
			score += 0.15
		case trades >= 20:
			score += 0.10
		}
	}

	if watchers := pval(token.Watchers); watchers > 0 {
		switch {
		case watchers >= 200:
			score += 0.15
		case watchers >= 50:
			score += 0.10
		}
	}

	if views := pval(token.Views24h); views > 0 {
		switch {
		case views >= 1000:
			score += 0.10
		case views >= 500:
			score += 0.05
		}
	}

	if token.BuyRatio != nil && *token.BuyRatio > 0 {
		switch {
		case *token.BuyRatio >= 0.60:
			score += 0.25
		case *token.BuyRatio >= 0.55:
			score += 0.15
		case *token.BuyRatio >= 0.50:
			score += 0.10
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}

func pval(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
