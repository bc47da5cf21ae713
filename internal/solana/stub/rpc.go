package stub

import (
	"context"
	"errors"

	"solana-revival-scanner/internal/solana"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing. Signatures are stored
// newest first, the way the real endpoint returns them.
type RPCClient struct {
	Transactions map[string]*solana.Transaction
	Signatures   map[string][]solana.SignatureInfo
	BlockTimes   map[int64]int64
	Slot         int64
	Calls        map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Signatures:   make(map[string][]solana.SignatureInfo),
		BlockTimes:   make(map[int64]int64),
		Calls:        make(map[string]int),
	}
}

// GetSignaturesForAddress retrieves signatures for an address from the stub
// store, honoring Before and Limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.Calls["getSignaturesForAddress"]++

	sigs, ok := c.Signatures[address]
	if !ok {
		return nil, nil
	}

	if opts != nil && opts.Before != "" {
		start := len(sigs)
		for i, s := range sigs {
			if s.Signature == opts.Before {
				start = i + 1
				break
			}
		}
		sigs = sigs[start:]
	}

	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}

	return sigs, nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.Calls["getTransaction"]++

	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetBlockTime retrieves a block time from the stub store. Returns nil for
// unknown slots, like a node whose ledger has been pruned.
func (c *RPCClient) GetBlockTime(_ context.Context, slot int64) (*int64, error) {
	c.Calls["getBlockTime"]++

	bt, ok := c.BlockTimes[slot]
	if !ok {
		return nil, nil
	}
	return &bt, nil
}

// GetSlot retrieves the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.Calls["getSlot"]++
	return c.Slot, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.Signatures[address] = sigs
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)
