package pipeline_test

import (
	"context"
	"sync"

	"github.com/canopy-network/dropx/pkg/ledger"
	"github.com/gagliardetto/solana-go"
)

// fakeLedger drives the pipeline stages without a network. Behavior is set
// per test through the function fields; nil fields fall back to benign
// defaults. All counters are mutex-guarded because the confirmer calls
// Finality from worker goroutines.
type fakeLedger struct {
	mu sync.Mutex

	multiFn    func(call int, addrs []solana.PublicKey) ([]*ledger.AccountInfo, error)
	finalityFn func(sig solana.Signature) (bool, error)
	submitErr  error

	mintInfo      ledger.MintInfo
	mintErr       error
	blockhashErr  error
	tokenBalances []ledger.TokenBalance

	multiCalls    int
	multiAddrs    [][]solana.PublicKey
	submitted     []*solana.Transaction
	waitSubmits   int
	simulated     int
	finalityCalls int
	sigCounter    byte
}

var _ ledger.Client = (*fakeLedger)(nil)

func (f *fakeLedger) Account(ctx context.Context, addr solana.PublicKey) (*ledger.AccountInfo, error) {
	return nil, ledger.ErrNotFound
}

func (f *fakeLedger) MultipleAccounts(ctx context.Context, addrs []solana.PublicKey) ([]*ledger.AccountInfo, error) {
	f.mu.Lock()
	f.multiCalls++
	call := f.multiCalls
	f.multiAddrs = append(f.multiAddrs, append([]solana.PublicKey(nil), addrs...))
	f.mu.Unlock()

	if f.multiFn != nil {
		return f.multiFn(call, addrs)
	}
	return make([]*ledger.AccountInfo, len(addrs)), nil
}

func (f *fakeLedger) TokenAccountsByMint(ctx context.Context, tokenProgram, mint solana.PublicKey) ([]ledger.TokenBalance, error) {
	return f.tokenBalances, nil
}

func (f *fakeLedger) MintInfo(ctx context.Context, mint solana.PublicKey) (ledger.MintInfo, error) {
	return f.mintInfo, f.mintErr
}

func (f *fakeLedger) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if f.blockhashErr != nil {
		return solana.Hash{}, f.blockhashErr
	}
	var h solana.Hash
	h[0] = 1
	return h, nil
}

func (f *fakeLedger) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if f.submitErr != nil {
		return solana.Signature{}, f.submitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, tx)
	f.sigCounter++
	var sig solana.Signature
	sig[0] = f.sigCounter
	return sig, nil
}

func (f *fakeLedger) SubmitAndWait(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	f.waitSubmits++
	f.mu.Unlock()
	return f.Submit(ctx, tx)
}

func (f *fakeLedger) Finality(ctx context.Context, sig solana.Signature) (bool, error) {
	f.mu.Lock()
	f.finalityCalls++
	f.mu.Unlock()
	if f.finalityFn != nil {
		return f.finalityFn(sig)
	}
	return false, nil
}

func (f *fakeLedger) Simulate(ctx context.Context, tx *solana.Transaction) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulated++
	return []string{"Program log: ok"}, nil
}
