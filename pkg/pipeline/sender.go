package pipeline

import (
	"context"
	"fmt"

	"github.com/canopy-network/dropx/pkg/ledger"
	"github.com/canopy-network/dropx/pkg/wallet"
	"go.uber.org/zap"
)

// Sender moves Qualified entries to a submitted state, one transaction per
// batch, atomically per batch.
type Sender struct {
	Client       ledger.Client
	Payer        ledger.Payer
	BatchSize    int
	ComputeLimit uint32
	ComputePrice uint64

	// Wait submits with blocking finality polling. Regardless of the wait
	// outcome, entries still land in Unconfirmed — a synchronous success
	// response is not proof of finality and is deliberately not trusted.
	Wait bool

	// DryRun simulates each built transaction instead of submitting and
	// leaves every status untouched.
	DryRun bool

	Logger *zap.Logger
}

// Run partitions Qualified entries into batches and submits one transaction
// per batch. Every entry in a batch shares the submitted signature, and the
// whole batch moves together: to Unconfirmed on submit success, to Failed
// on submit failure.
func (s *Sender) Run(ctx context.Context, list wallet.List) error {
	payerKey := s.Payer.Key.PublicKey()
	var eligible []*wallet.Entry
	for _, e := range list {
		if e.Status.Kind() != wallet.KindQualified {
			continue
		}
		if e.Holder.Equals(payerKey) {
			// Self-transfer guard: the funding wallet never pays itself.
			continue
		}
		if e.Destination == nil {
			e.Status = wallet.Failed("destination unresolved; rerun check stage")
			continue
		}
		eligible = append(eligible, e)
	}

	batchSize := s.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	batches := (len(eligible) + batchSize - 1) / batchSize
	s.Logger.Info("Submitting transfer batches",
		zap.Int("qualified", len(eligible)),
		zap.Int("batches", batches),
		zap.Bool("dry_run", s.DryRun))

	for start := 0; start < len(eligible); start += batchSize {
		end := min(start+batchSize, len(eligible))
		batch := eligible[start:end]

		legs := make([]ledger.TransferLeg, len(batch))
		for i, e := range batch {
			legs[i] = ledger.TransferLeg{Destination: *e.Destination, Amount: e.Amount}
		}

		blockhash, err := s.Client.LatestBlockhash(ctx)
		if err != nil {
			failBatch(batch, fmt.Sprintf("fetch blockhash: %v", err))
			continue
		}
		tx, err := ledger.NewTransferBatchTx(ledger.TransferBatchParams{
			Payer:            s.Payer.Key,
			SourceAccount:    s.Payer.SourceAccount,
			Mint:             s.Payer.Mint,
			TokenProgram:     s.Payer.TokenProgram,
			Decimals:         s.Payer.Decimals,
			ComputeUnitLimit: s.ComputeLimit,
			ComputeUnitPrice: s.ComputePrice,
			Blockhash:        blockhash,
		}, legs)
		if err != nil {
			failBatch(batch, fmt.Sprintf("build transaction: %v", err))
			continue
		}

		if s.DryRun {
			logs, simErr := s.Client.Simulate(ctx, tx)
			s.Logger.Info("Simulated batch",
				zap.Int("entries", len(batch)),
				zap.Strings("logs", logs),
				zap.Error(simErr))
			continue
		}

		submit := s.Client.Submit
		if s.Wait {
			submit = s.Client.SubmitAndWait
		}
		sig, err := submit(ctx, tx)
		if err != nil {
			failBatch(batch, fmt.Sprintf("submit: %v", err))
			continue
		}
		for _, e := range batch {
			e.Status = wallet.Unconfirmed(sig)
		}
		s.Logger.Debug("Batch submitted",
			zap.String("signature", sig.String()),
			zap.Int("entries", len(batch)))
	}
	return nil
}

func failBatch(batch []*wallet.Entry, reason string) {
	for _, e := range batch {
		e.Status = wallet.Failed(reason)
	}
}
