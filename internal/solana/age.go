package solana

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"solana-revival-scanner/internal/cache"
	"solana-revival-scanner/internal/ratelimit"
	"solana-revival-scanner/internal/source"
)

// Default resolver tuning.
const (
	DefaultPageLimit = 1000
	DefaultMaxPages  = 10
)

const ageKeyPrefix = "age:"

// AgeResolver resolves a mint's on-chain creation time by walking its
// signature history back to the first transaction. Creation timestamps are
// cached so repeated scans cost no RPC credits.
type AgeResolver struct {
	rpc       RPCClient
	limiter   *ratelimit.Limiter
	cache     cache.Cache
	ttl       time.Duration
	pageLimit int
	maxPages  int
	now       func() time.Time
}

// AgeOption configures AgeResolver.
type AgeOption func(*AgeResolver)

// WithClock sets the time source.
func WithClock(now func() time.Time) AgeOption {
	return func(r *AgeResolver) {
		r.now = now
	}
}

// WithPageLimit sets the signature page size.
func WithPageLimit(n int) AgeOption {
	return func(r *AgeResolver) {
		r.pageLimit = n
	}
}

// WithMaxPages sets the page walk cap.
func WithMaxPages(n int) AgeOption {
	return func(r *AgeResolver) {
		r.maxPages = n
	}
}

// NewAgeResolver creates an AgeResolver. Creation timestamps are cached under
// the given TTL.
func NewAgeResolver(rpc RPCClient, limiter *ratelimit.Limiter, c cache.Cache, ttl time.Duration, opts ...AgeOption) *AgeResolver {
	r := &AgeResolver{
		rpc:       rpc,
		limiter:   limiter,
		cache:     c,
		ttl:       ttl,
		pageLimit: DefaultPageLimit,
		maxPages:  DefaultMaxPages,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compile-time interface check.
var _ source.AgeSource = (*AgeResolver)(nil)

// TokenAge returns the mint's age in hours at the time of the call. The
// creation timestamp is cached, the age itself is always recomputed.
func (r *AgeResolver) TokenAge(ctx context.Context, mint string) (float64, error) {
	if created, ok := r.cachedCreation(ctx, mint); ok {
		return r.ageHours(created), nil
	}

	created, err := r.creationTime(ctx, mint)
	if err != nil {
		return 0, err
	}

	r.cache.Set(ctx, ageKeyPrefix+mint, []byte(strconv.FormatInt(created, 10)), r.ttl)
	return r.ageHours(created), nil
}

func (r *AgeResolver) ageHours(created int64) float64 {
	return r.now().Sub(time.Unix(created, 0)).Hours()
}

func (r *AgeResolver) cachedCreation(ctx context.Context, mint string) (int64, bool) {
	val, ok := r.cache.Get(ctx, ageKeyPrefix+mint)
	if !ok {
		return 0, false
	}
	created, err := strconv.ParseInt(string(val), 10, 64)
	if err != nil {
		r.cache.Delete(ctx, ageKeyPrefix+mint)
		return 0, false
	}
	return created, true
}

// creationTime finds the block time of the mint's first transaction.
func (r *AgeResolver) creationTime(ctx context.Context, mint string) (int64, error) {
	oldest, err := r.oldestSignature(ctx, mint)
	if err != nil {
		return 0, err
	}
	if oldest == nil {
		return 0, source.Malformed(source.SolanaRPC, fmt.Errorf("no transaction history for %s", mint))
	}

	if err := r.limiter.Wait(ctx, source.SolanaRPC); err != nil {
		return 0, err
	}
	tx, txErr := r.rpc.GetTransaction(ctx, oldest.Signature)
	if txErr == nil && tx != nil && tx.BlockTime > 0 {
		return tx.BlockTime, nil
	}

	// The signature listing carries a block time of its own.
	if oldest.BlockTime != nil && *oldest.BlockTime > 0 {
		return *oldest.BlockTime, nil
	}

	// Last resort: the block the transaction landed in.
	if oldest.Slot > 0 {
		if err := r.limiter.Wait(ctx, source.SolanaRPC); err != nil {
			return 0, err
		}
		if bt, err := r.rpc.GetBlockTime(ctx, oldest.Slot); err == nil && bt != nil && *bt > 0 {
			return *bt, nil
		}
	}

	if txErr != nil {
		return 0, classifyRPC(txErr)
	}
	return 0, source.Malformed(source.SolanaRPC, fmt.Errorf("no block time for %s", mint))
}

// oldestSignature walks signature pages newest-to-oldest. After maxPages full
// pages the oldest seen is a lower bound, so very active tokens resolve as
// younger than they are.
func (r *AgeResolver) oldestSignature(ctx context.Context, mint string) (*SignatureInfo, error) {
	var oldest *SignatureInfo
	cursor := ""

	for page := 0; page < r.maxPages; page++ {
		if err := r.limiter.Wait(ctx, source.SolanaRPC); err != nil {
			return nil, err
		}

		opts := &SignaturesOpts{Limit: r.pageLimit}
		if cursor != "" {
			opts.Before = cursor
		}

		sigs, err := r.rpc.GetSignaturesForAddress(ctx, mint, opts)
		if err != nil {
			return nil, classifyRPC(err)
		}
		if len(sigs) == 0 {
			break
		}

		last := sigs[len(sigs)-1]
		oldest = &last
		cursor = last.Signature

		if len(sigs) < r.pageLimit {
			break
		}
	}

	return oldest, nil
}

// classifyRPC maps client errors onto the adapter failure taxonomy. Context
// errors pass through unwrapped.
func classifyRPC(err error) error {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, errRateLimited):
		return source.RateLimited(source.SolanaRPC, err)
	case errors.Is(err, errMalformedResult):
		return source.Malformed(source.SolanaRPC, err)
	default:
		return source.Unavailable(source.SolanaRPC, err)
	}
}
