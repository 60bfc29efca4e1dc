// Package ledger wraps the Solana RPC surface the pipeline consumes. The
// pipeline only ever talks to the Client interface, so every stage can be
// driven by a fake in tests and the RPC implementation stays swappable.
package ledger

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrNotFound marks a single-account lookup whose address has no account.
var ErrNotFound = errors.New("account not found")

// AccountInfo is the subset of on-chain account state the pipeline reads.
type AccountInfo struct {
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// TokenBalance is one token account's owner and amount from a mint scan.
type TokenBalance struct {
	Owner  solana.PublicKey
	Amount uint64
}

// MintInfo describes the mint being distributed: which token program owns
// it (Token vs Token-2022) and its decimal count. Both feed destination
// derivation and transfer instruction building.
type MintInfo struct {
	TokenProgram solana.PublicKey
	Decimals     uint8
}

// Client is the narrow ledger capability consumed by the pipeline stages.
type Client interface {
	// Account returns a single account, or ErrNotFound.
	Account(ctx context.Context, addr solana.PublicKey) (*AccountInfo, error)

	// MultipleAccounts returns one slot per requested address, nil where
	// the address has no account. Callers bound len(addrs) by the
	// configured lookup chunk size.
	MultipleAccounts(ctx context.Context, addrs []solana.PublicKey) ([]*AccountInfo, error)

	// TokenAccountsByMint enumerates every token account of the mint under
	// the given token program, returning owner and amount per account.
	TokenAccountsByMint(ctx context.Context, tokenProgram, mint solana.PublicKey) ([]TokenBalance, error)

	// MintInfo fetches the mint account and reports its owning token
	// program and decimals.
	MintInfo(ctx context.Context, mint solana.PublicKey) (MintInfo, error)

	// LatestBlockhash returns the sequencing token a new transaction must
	// reference.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)

	// Submit sends the transaction without waiting for finality.
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

	// SubmitAndWait sends the transaction and blocks until finality or the
	// configured wait timeout. The wait outcome is advisory: a timeout is
	// not an error and a positive result is not proof of finality, so
	// callers must still reconcile through Finality.
	SubmitAndWait(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

	// Finality reports whether the submitted transaction is finalized. A
	// signature the ledger does not know yet reports (false, nil); only
	// transport failures return an error.
	Finality(ctx context.Context, sig solana.Signature) (bool, error)

	// Simulate dry-runs the transaction against current ledger state and
	// returns the execution logs.
	Simulate(ctx context.Context, tx *solana.Transaction) ([]string, error)
}
