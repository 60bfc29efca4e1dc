// Package snapshot captures who holds a mint, and how much, at a point in
// time.
package snapshot

import (
	"context"

	"github.com/canopy-network/dropx/pkg/ledger"
	"github.com/canopy-network/dropx/pkg/wallet"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Params filter the raw token-account scan.
type Params struct {
	Mint solana.PublicKey

	// MinimumBalance drops holders below the threshold, in atomic units.
	MinimumBalance uint64

	// Blacklist drops the listed holders (funding wallet, treasuries).
	Blacklist []solana.PublicKey
}

// Take scans every token account of the mint and aggregates balances per
// holder: a holder with several token accounts appears once, with the sum.
// The result is sorted by holder address and immutable from here on.
func Take(ctx context.Context, cli ledger.Client, p Params, logger *zap.Logger) (wallet.Snapshot, error) {
	mintInfo, err := cli.MintInfo(ctx, p.Mint)
	if err != nil {
		return nil, err
	}
	logger.Info("Scanning token accounts",
		zap.String("mint", p.Mint.String()),
		zap.String("token_program", mintInfo.TokenProgram.String()),
		zap.Uint64("minimum_balance", p.MinimumBalance))

	balances, err := cli.TokenAccountsByMint(ctx, mintInfo.TokenProgram, p.Mint)
	if err != nil {
		return nil, err
	}

	blacklisted := make(map[solana.PublicKey]struct{}, len(p.Blacklist))
	for _, pk := range p.Blacklist {
		blacklisted[pk] = struct{}{}
	}

	totals := make(map[solana.PublicKey]uint64)
	for _, b := range balances {
		if _, banned := blacklisted[b.Owner]; banned {
			continue
		}
		totals[b.Owner] += b.Amount
	}

	snap := make(wallet.Snapshot, 0, len(totals))
	for holder, balance := range totals {
		if balance < p.MinimumBalance {
			continue
		}
		snap = append(snap, wallet.BalanceRecord{Holder: holder, Balance: balance})
	}
	snap.Sort()

	logger.Info("Snapshot captured",
		zap.Int("token_accounts", len(balances)),
		zap.Int("holders", len(snap)))
	return snap, nil
}
