package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface the scanner uses.
type RPCClient interface {
	// GetSignaturesForAddress retrieves signatures for an address, newest
	// first, with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a transaction by signature. Returns nil if
	// the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetBlockTime retrieves the estimated production time of a block.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
}
