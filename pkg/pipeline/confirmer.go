package pipeline

import (
	"context"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/dropx/pkg/ledger"
	"github.com/canopy-network/dropx/pkg/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// Confirmer resolves Unconfirmed entries against ledger finality. Lookups
// run on a bounded worker pool: they are read-only and each signature's
// entries are a disjoint subset of the list, so parallelism here carries
// none of the ordering constraints that keep submission serial.
type Confirmer struct {
	Client  ledger.Client
	Workers int
	Logger  *zap.Logger
}

// Run queries finality for every distinct outstanding signature and
// promotes the entries of each finalized one to Succeeded together. A
// failed lookup leaves its entries Unconfirmed — a transient transport
// error is not evidence of non-finality. Returns the number of signatures
// still unresolved.
func (c *Confirmer) Run(ctx context.Context, list wallet.List) int {
	sigs := list.UnconfirmedSignatures()
	if len(sigs) == 0 {
		return 0
	}
	c.Logger.Debug("Confirming transactions", zap.Int("signatures", len(sigs)))

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	finalized := xsync.NewMap[solana.Signature, bool]()
	pool := pond.NewPool(workers)
	group := pool.NewGroupContext(ctx)
	for _, sig := range sigs {
		group.Submit(func() {
			ok, err := c.Client.Finality(ctx, sig)
			if err != nil {
				c.Logger.Debug("Finality lookup failed",
					zap.String("signature", sig.String()),
					zap.Error(err))
				return
			}
			finalized.Store(sig, ok)
		})
	}
	_ = group.Wait()
	pool.StopAndWait()

	confirmed := 0
	for _, sig := range sigs {
		ok, known := finalized.Load(sig)
		if !known || !ok {
			continue
		}
		list.SucceedUnconfirmed(sig)
		confirmed++
	}

	remaining := len(sigs) - confirmed
	c.Logger.Info("Confirmation pass finished",
		zap.Int("confirmed", confirmed),
		zap.Int("unconfirmed", remaining))
	return remaining
}
