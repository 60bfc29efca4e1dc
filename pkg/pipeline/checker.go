// Package pipeline implements the airdrop stages — qualification checking,
// batched transfer submission, confirmation reconciliation — and the
// orchestrator that runs them under bounded retry loops with a checkpoint
// saved after every attempt.
package pipeline

import (
	"context"
	"fmt"

	"github.com/canopy-network/dropx/pkg/ledger"
	"github.com/canopy-network/dropx/pkg/wallet"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Checker resolves each Unprocessed entry to Qualified, Disqualified or
// Failed, in bounded multi-account lookups.
type Checker struct {
	Client       ledger.Client
	Mint         solana.PublicKey
	TokenProgram solana.PublicKey
	ChunkSize    int
	Logger       *zap.Logger
}

// Run checks every Unprocessed entry. Destinations are derived and cached
// on first touch and never recomputed. A failed chunk lookup fails every
// entry in that chunk as one unit: a transport error says nothing about any
// individual destination, so it is never attributed per entry.
func (c *Checker) Run(ctx context.Context, list wallet.List) error {
	var pending []*wallet.Entry
	for _, e := range list {
		if e.Status.Kind() == wallet.KindUnprocessed {
			pending = append(pending, e)
		}
	}
	c.Logger.Debug("Checking qualification", zap.Int("unprocessed", len(pending)))

	chunkSize := c.ChunkSize
	if chunkSize < 1 {
		chunkSize = 1
	}
	for start := 0; start < len(pending); start += chunkSize {
		end := min(start+chunkSize, len(pending))

		// Only entries with a usable destination enter the lookup, so a
		// derivation failure never burns a slot in the request.
		lookup := make([]*wallet.Entry, 0, end-start)
		addrs := make([]solana.PublicKey, 0, end-start)
		for _, e := range pending[start:end] {
			if e.Destination == nil {
				dest, err := ledger.AssociatedTokenAddress(e.Holder, c.TokenProgram, c.Mint)
				if err != nil {
					// Derivation is pure; failure means the holder key is
					// unusable, not that the network misbehaved.
					e.Status = wallet.Disqualified()
					continue
				}
				e.Destination = &dest
			}
			lookup = append(lookup, e)
			addrs = append(addrs, *e.Destination)
		}
		if len(addrs) == 0 {
			continue
		}

		accounts, err := c.Client.MultipleAccounts(ctx, addrs)
		if err != nil {
			reason := fmt.Sprintf("account lookup failed: %v", err)
			for _, e := range lookup {
				e.Status = wallet.Failed(reason)
			}
			continue
		}
		if len(accounts) != len(lookup) {
			return fmt.Errorf("account lookup returned %d results for %d addresses", len(accounts), len(lookup))
		}

		for i, e := range lookup {
			if c.qualifies(accounts[i]) {
				e.Status = wallet.Qualified()
			} else {
				e.Status = wallet.Disqualified()
			}
		}
	}
	return nil
}

// qualifies decides per-entry eligibility from the fetched destination
// account. This classification is local and side-effect-free: it can
// disqualify, but it can never fail for transport reasons.
func (c *Checker) qualifies(acc *ledger.AccountInfo) bool {
	if acc == nil {
		return false
	}
	if !acc.Owner.Equals(c.TokenProgram) {
		return false
	}
	return len(acc.Data) >= ledger.TokenAccountSize
}
