package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/canopy-network/dropx/pkg/allocate"
	"github.com/canopy-network/dropx/pkg/config"
	"github.com/canopy-network/dropx/pkg/ledger"
	"github.com/canopy-network/dropx/pkg/retry"
	"github.com/canopy-network/dropx/pkg/store"
	"github.com/canopy-network/dropx/pkg/wallet"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// ErrStageNotReady is returned when a stage's predecessor checkpoint is
// missing; it tells the operator which prior subcommand to run.
var ErrStageNotReady = errors.New("stage not ready: required predecessor checkpoint is missing")

// Stages orchestrates the pipeline over the checkpoint files derived from
// ListPath. Every stage loads its predecessor's checkpoint, runs a bounded
// retry loop, and persists after every attempt so a crash mid-loop loses at
// most one attempt's work.
type Stages struct {
	Cfg      *config.Config
	Client   ledger.Client
	Logger   *zap.Logger
	ListPath string

	// DryRun suppresses every checkpoint write and every network-mutating
	// call; lookups still run.
	DryRun bool

	// Prompt gates real submission in the send stage. Nil means proceed.
	Prompt func(msg string) bool
}

// Allocate builds the recipient list from a snapshot and the total pool
// amount and writes it as the pipeline's base checkpoint.
func (s *Stages) Allocate(snapshotPath string, p allocate.Params) error {
	snap, err := store.LoadSnapshot(snapshotPath)
	if err != nil {
		return fmt.Errorf("%w (run snapshot first): %v", ErrStageNotReady, err)
	}

	list, err := allocate.Build(snap, p)
	if err != nil {
		return err
	}

	var allocated uint64
	for _, e := range list {
		allocated += e.Amount
	}
	s.Logger.Info("Allocation built",
		zap.Int("holders", len(snap)),
		zap.Int("recipients", len(list)),
		zap.Uint64("pool", p.Total),
		zap.Uint64("allocated", allocated),
		zap.Uint64("dust", p.Total-allocated))

	return s.save(s.ListPath, list)
}

// Check runs the qualification stage: up to CheckMaxAttempts passes over
// the Unprocessed entries, rewinding Failed entries between attempts and
// retiring the survivors to Excluded after the last one.
func (s *Stages) Check(ctx context.Context, mint solana.PublicKey) error {
	if err := s.require(s.ListPath, "allocate"); err != nil {
		return err
	}
	checkedPath := store.StagePath(s.ListPath, store.StageChecked)
	basePath := s.ListPath
	if ok, err := store.Exists(checkedPath); err != nil {
		return err
	} else if ok {
		// Rerunning the stage against its own checkpoint is safe: entries
		// already classified are skipped, only Unprocessed ones are touched.
		s.Logger.Info("Found check-stage checkpoint, resuming")
		basePath = checkedPath
	}
	list, err := store.LoadList(basePath)
	if err != nil {
		return err
	}

	mintInfo, err := s.Client.MintInfo(ctx, mint)
	if err != nil {
		return err
	}
	checker := &Checker{
		Client:       s.Client,
		Mint:         mint,
		TokenProgram: mintInfo.TokenProgram,
		ChunkSize:    s.Cfg.LookupChunkSize,
		Logger:       s.Logger,
	}

	err = retry.Loop(ctx, retry.Config{MaxAttempts: s.Cfg.CheckMaxAttempts}, s.Logger, "qualification check",
		func(attempt int, final bool) (bool, error) {
			if err := checker.Run(ctx, list); err != nil {
				return false, err
			}
			failed := list.Count(wallet.KindFailed)
			if failed == 0 {
				return true, s.save(checkedPath, list)
			}
			s.Logger.Warn("Qualification checks failed",
				zap.Int("failed", failed),
				zap.Int("attempt", attempt))
			if final {
				list.ExcludeFailed()
			} else {
				list.ResetFailedToUnprocessed()
			}
			return false, s.save(checkedPath, list)
		})
	if err != nil {
		return err
	}

	s.report("check", list)
	return nil
}

// Send runs the transfer stage. When a confirm-stage checkpoint exists this
// is a resubmission run: it reconciles once more, demotes what is still
// Unconfirmed, rewinds Failed entries to Qualified and then submits again.
// Otherwise it starts from the check-stage checkpoint.
func (s *Stages) Send(ctx context.Context, mint solana.PublicKey, payerPath string, wait bool) error {
	mintInfo, err := s.Client.MintInfo(ctx, mint)
	if err != nil {
		return err
	}
	payer, err := ledger.NewPayer(payerPath, mint, mintInfo)
	if err != nil {
		return err
	}

	checkedPath := store.StagePath(s.ListPath, store.StageChecked)
	sentPath := store.StagePath(s.ListPath, store.StageSent)
	confirmedPath := store.StagePath(s.ListPath, store.StageConfirmed)

	var list wallet.List
	confirmedExists, err := store.Exists(confirmedPath)
	if err != nil {
		return err
	}
	checkedExists, err := store.Exists(checkedPath)
	if err != nil {
		return err
	}
	switch {
	case confirmedExists:
		s.Logger.Info("Found confirm-stage checkpoint, reconciling before resubmission")
		if list, err = store.LoadList(confirmedPath); err != nil {
			return err
		}
		// Rotate the old confirm checkpoint away so the next confirm stage
		// starts from this send's output.
		if !s.DryRun {
			if _, err := store.BackupIfExists(confirmedPath); err != nil {
				return err
			}
		}
		if len(list.UnconfirmedSignatures()) > 0 {
			confirmer := &Confirmer{Client: s.Client, Workers: s.Cfg.ConfirmWorkers, Logger: s.Logger}
			remaining := confirmer.Run(ctx, list)
			s.Logger.Info("Demoting unresolved submissions before resubmission",
				zap.Int("unconfirmed", remaining))
			list.FailUnconfirmed(func(sig solana.Signature) string {
				return fmt.Sprintf("could not confirm transaction %s", sig)
			})
		}
		list.ResetFailedToQualified()
		// The old confirm checkpoint is already rotated away, so persist
		// the reconciled list immediately: any return below must not lose
		// the promotions and demotions just computed.
		if err := s.save(sentPath, list); err != nil {
			return err
		}
	case checkedExists:
		if sentExists, serr := store.Exists(sentPath); serr == nil && sentExists {
			s.Logger.Warn("Send-stage checkpoint exists without a confirm-stage one; running send twice without confirming risks double-paying")
		}
		if list, err = store.LoadList(checkedPath); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w (run check first)", ErrStageNotReady)
	}

	qualified := list.Count(wallet.KindQualified)
	if qualified == 0 {
		s.Logger.Info("No qualified entries to send")
		return nil
	}
	if !s.DryRun && s.Prompt != nil {
		if !s.Prompt(fmt.Sprintf("About to submit transfers for %d recipients. Proceed?", qualified)) {
			s.Logger.Info("Send aborted by operator")
			return nil
		}
	}

	sender := &Sender{
		Client:       s.Client,
		Payer:        payer,
		BatchSize:    s.Cfg.TransferBatchSize,
		ComputeLimit: s.Cfg.ComputeUnitLimit,
		ComputePrice: s.Cfg.ComputeUnitPrice,
		Wait:         wait,
		DryRun:       s.DryRun,
		Logger:       s.Logger,
	}
	err = retry.Loop(ctx, retry.Config{MaxAttempts: s.Cfg.SendMaxAttempts}, s.Logger, "transfer send",
		func(attempt int, final bool) (bool, error) {
			if err := sender.Run(ctx, list); err != nil {
				return false, err
			}
			if err := s.save(sentPath, list); err != nil {
				return false, err
			}
			if list.Count(wallet.KindFailed) == 0 {
				return true, nil
			}
			if !final {
				list.ResetFailedToQualified()
			}
			return false, nil
		})
	if err != nil {
		return err
	}

	s.report("send", list)
	return nil
}

// Confirm runs the reconciliation stage: up to ConfirmMaxAttempts finality
// passes separated by ConfirmInterval. Entries still Unconfirmed after the
// last pass are demoted to Failed with a reason that flags the ambiguity —
// the transfer may have landed without this tool observing it, so such
// entries need manual reconciliation before any resubmission.
func (s *Stages) Confirm(ctx context.Context) error {
	sentPath := store.StagePath(s.ListPath, store.StageSent)
	confirmedPath := store.StagePath(s.ListPath, store.StageConfirmed)

	basePath := ""
	if ok, err := store.Exists(confirmedPath); err != nil {
		return err
	} else if ok {
		s.Logger.Info("Found confirm-stage checkpoint, retrying confirmation")
		basePath = confirmedPath
	} else if ok, err := store.Exists(sentPath); err != nil {
		return err
	} else if ok {
		basePath = sentPath
	} else {
		return fmt.Errorf("%w (run send first)", ErrStageNotReady)
	}

	list, err := store.LoadList(basePath)
	if err != nil {
		return err
	}
	outstanding := len(list.UnconfirmedSignatures())
	if outstanding == 0 {
		s.Logger.Info("No unconfirmed transactions")
		return nil
	}
	s.Logger.Info("Confirming submitted transactions", zap.Int("signatures", outstanding))

	confirmer := &Confirmer{Client: s.Client, Workers: s.Cfg.ConfirmWorkers, Logger: s.Logger}
	attempts := s.Cfg.ConfirmMaxAttempts
	err = retry.Loop(ctx, retry.Config{MaxAttempts: attempts, Interval: s.Cfg.ConfirmInterval}, s.Logger, "confirmation",
		func(attempt int, final bool) (bool, error) {
			remaining := confirmer.Run(ctx, list)
			if remaining == 0 {
				return true, s.save(confirmedPath, list)
			}
			if final {
				list.FailUnconfirmed(func(sig solana.Signature) string {
					return fmt.Sprintf("unconfirmed after %d attempts (transfer may have landed on-ledger; reconcile manually before resending): %s", attempts, sig)
				})
			}
			return false, s.save(confirmedPath, list)
		})
	if err != nil {
		return err
	}

	s.report("confirm", list)
	return nil
}

// Display loads a wallet list checkpoint and reports its status counts.
func (s *Stages) Display(path string) error {
	list, err := store.LoadList(path)
	if err != nil {
		return err
	}
	s.report("display", list)
	return nil
}

func (s *Stages) require(path, predecessor string) error {
	ok, err := store.Exists(path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w (run %s first)", ErrStageNotReady, predecessor)
	}
	return nil
}

func (s *Stages) save(path string, list wallet.List) error {
	if s.DryRun {
		s.Logger.Debug("Dry run: skipping checkpoint write", zap.String("path", path))
		return nil
	}
	return store.SaveList(path, list)
}

func (s *Stages) report(stage string, list wallet.List) {
	counts := list.CountByStatus()
	s.Logger.Info("Stage finished",
		zap.String("stage", stage),
		zap.Int("total", len(list)),
		zap.Int("succeeded", counts["succeeded"]),
		zap.Int("qualified", counts["qualified"]),
		zap.Int("unconfirmed", counts["unconfirmed"]),
		zap.Int("disqualified", counts["disqualified"]),
		zap.Int("failed", counts["failed"]),
		zap.Int("excluded", counts["excluded"]),
		zap.Int("unprocessed", counts["unprocessed"]))
}
