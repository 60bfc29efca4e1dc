package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/canopy-network/dropx/pkg/allocate"
	"github.com/canopy-network/dropx/pkg/config"
	"github.com/canopy-network/dropx/pkg/ledger"
	"github.com/canopy-network/dropx/pkg/pipeline"
	"github.com/canopy-network/dropx/pkg/store"
	"github.com/canopy-network/dropx/pkg/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		LookupChunkSize:    100,
		TransferBatchSize:  18,
		CheckMaxAttempts:   4,
		SendMaxAttempts:    1,
		ConfirmMaxAttempts: 3,
		ConfirmInterval:    0,
		ConfirmWorkers:     2,
		ComputeUnitLimit:   1_000_000,
		ComputeUnitPrice:   1,
	}
}

func newStages(cli *fakeLedger, listPath string) *pipeline.Stages {
	return &pipeline.Stages{
		Cfg:      testConfig(),
		Client:   cli,
		Logger:   zap.NewNop(),
		ListPath: listPath,
	}
}

// writeKeypairFile writes a solana-keygen style JSON byte array.
func writeKeypairFile(t *testing.T, dir string) (string, solana.PrivateKey) {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)
	path := filepath.Join(dir, "payer.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path, key
}

func loadList(t *testing.T, path string) wallet.List {
	t.Helper()
	list, err := store.LoadList(path)
	require.NoError(t, err)
	return list
}

func TestAllocateStageWritesBaseCheckpoint(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	snapPath := filepath.Join(dir, "snapshot.csv")
	snap := wallet.Snapshot{
		{Holder: randomKey(t), Balance: 100},
		{Holder: randomKey(t), Balance: 200},
		{Holder: randomKey(t), Balance: 300},
	}
	require.NoError(t, store.SaveSnapshot(snapPath, snap))

	stages := newStages(&fakeLedger{}, listPath)
	require.NoError(t, stages.Allocate(snapPath, allocate.Params{Total: 60}))

	list := loadList(t, listPath)
	require.Len(t, list, 3)
	var amounts []uint64
	for _, e := range list {
		assert.Equal(t, wallet.KindUnprocessed, e.Status.Kind())
		amounts = append(amounts, e.Amount)
	}
	assert.ElementsMatch(t, []uint64{10, 20, 30}, amounts)
}

func TestAllocateStageMissingSnapshot(t *testing.T) {
	dir := t.TempDir()
	stages := newStages(&fakeLedger{}, filepath.Join(dir, "wallets.csv"))
	err := stages.Allocate(filepath.Join(dir, "absent.csv"), allocate.Params{Total: 60})
	assert.ErrorIs(t, err, pipeline.ErrStageNotReady)
}

func TestCheckStageMissingList(t *testing.T) {
	stages := newStages(&fakeLedger{}, filepath.Join(t.TempDir(), "wallets.csv"))
	err := stages.Check(context.Background(), randomKey(t))
	assert.ErrorIs(t, err, pipeline.ErrStageNotReady)
}

func TestCheckExcludesAfterFinalAttempt(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	require.NoError(t, store.SaveList(listPath, wallet.List{unprocessedEntry(t)}))

	cli := &fakeLedger{
		mintInfo: ledger.MintInfo{TokenProgram: randomKey(t), Decimals: 6},
		multiFn: func(call int, addrs []solana.PublicKey) ([]*ledger.AccountInfo, error) {
			return nil, errors.New("rpc node unavailable")
		},
	}
	stages := newStages(cli, listPath)
	require.NoError(t, stages.Check(context.Background(), randomKey(t)))

	// One lookup per attempt, then the survivors retire.
	assert.Equal(t, 4, cli.multiCalls)
	checked := loadList(t, store.StagePath(listPath, store.StageChecked))
	require.Len(t, checked, 1)
	require.Equal(t, wallet.KindExcluded, checked[0].Status.Kind())
	reason, _ := checked[0].Status.Reason()
	assert.Contains(t, reason, "rpc node unavailable")

	// Every attempt saved the checkpoint, rotating the previous one away.
	ok, err := store.Exists(store.StagePath(listPath, store.StageChecked) + ".bak3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckResumesFromCheckedCheckpoint(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	checkedPath := store.StagePath(listPath, store.StageChecked)
	tokenProgram := randomKey(t)

	done := qualifiedEntry(t)
	require.NoError(t, store.SaveList(listPath, wallet.List{done, unprocessedEntry(t)}))
	require.NoError(t, store.SaveList(checkedPath, wallet.List{done, unprocessedEntry(t)}))

	cli := &fakeLedger{
		mintInfo: ledger.MintInfo{TokenProgram: tokenProgram, Decimals: 6},
		multiFn: func(call int, addrs []solana.PublicKey) ([]*ledger.AccountInfo, error) {
			accounts := make([]*ledger.AccountInfo, len(addrs))
			for i := range accounts {
				accounts[i] = tokenAccount(tokenProgram)
			}
			return accounts, nil
		},
	}
	stages := newStages(cli, listPath)
	require.NoError(t, stages.Check(context.Background(), randomKey(t)))

	// Only the one Unprocessed entry from the checkpoint is looked up.
	require.Len(t, cli.multiAddrs, 1)
	assert.Len(t, cli.multiAddrs[0], 1)
	for _, e := range loadList(t, checkedPath) {
		assert.Equal(t, wallet.KindQualified, e.Status.Kind())
	}
}

func TestCheckDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	require.NoError(t, store.SaveList(listPath, wallet.List{unprocessedEntry(t)}))

	tokenProgram := randomKey(t)
	cli := &fakeLedger{
		mintInfo: ledger.MintInfo{TokenProgram: tokenProgram, Decimals: 6},
		multiFn: func(call int, addrs []solana.PublicKey) ([]*ledger.AccountInfo, error) {
			return []*ledger.AccountInfo{tokenAccount(tokenProgram)}, nil
		},
	}
	stages := newStages(cli, listPath)
	stages.DryRun = true
	require.NoError(t, stages.Check(context.Background(), randomKey(t)))

	ok, err := store.Exists(store.StagePath(listPath, store.StageChecked))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendStageRequiresCheckpoint(t *testing.T) {
	dir := t.TempDir()
	payerPath, _ := writeKeypairFile(t, dir)
	cli := &fakeLedger{mintInfo: ledger.MintInfo{TokenProgram: randomKey(t), Decimals: 6}}
	stages := newStages(cli, filepath.Join(dir, "wallets.csv"))

	err := stages.Send(context.Background(), randomKey(t), payerPath, false)
	assert.ErrorIs(t, err, pipeline.ErrStageNotReady)
}

func TestSendFromCheckedCheckpoint(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	checkedPath := store.StagePath(listPath, store.StageChecked)
	require.NoError(t, store.SaveList(checkedPath, wallet.List{qualifiedEntry(t), qualifiedEntry(t)}))

	payerPath, _ := writeKeypairFile(t, dir)
	cli := &fakeLedger{mintInfo: ledger.MintInfo{TokenProgram: randomKey(t), Decimals: 6}}
	stages := newStages(cli, listPath)

	require.NoError(t, stages.Send(context.Background(), randomKey(t), payerPath, false))

	assert.Len(t, cli.submitted, 1)
	sent := loadList(t, store.StagePath(listPath, store.StageSent))
	require.Len(t, sent, 2)
	for _, e := range sent {
		assert.Equal(t, wallet.KindUnconfirmed, e.Status.Kind())
	}
}

func TestSendPromptDeclineAborts(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	checkedPath := store.StagePath(listPath, store.StageChecked)
	require.NoError(t, store.SaveList(checkedPath, wallet.List{qualifiedEntry(t)}))

	payerPath, _ := writeKeypairFile(t, dir)
	cli := &fakeLedger{mintInfo: ledger.MintInfo{TokenProgram: randomKey(t), Decimals: 6}}
	stages := newStages(cli, listPath)
	stages.Prompt = func(string) bool { return false }

	require.NoError(t, stages.Send(context.Background(), randomKey(t), payerPath, false))

	assert.Empty(t, cli.submitted)
	ok, err := store.Exists(store.StagePath(listPath, store.StageSent))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendResubmissionAfterConfirm(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	confirmedPath := store.StagePath(listPath, store.StageConfirmed)

	retriable := qualifiedEntry(t)
	retriable.Status = wallet.Failed("unconfirmed after 3 attempts")
	settled := &wallet.Entry{Holder: randomKey(t), Amount: 7, Status: wallet.Succeeded(sigByte(9))}
	require.NoError(t, store.SaveList(confirmedPath, wallet.List{retriable, settled}))

	payerPath, _ := writeKeypairFile(t, dir)
	cli := &fakeLedger{mintInfo: ledger.MintInfo{TokenProgram: randomKey(t), Decimals: 6}}
	stages := newStages(cli, listPath)

	require.NoError(t, stages.Send(context.Background(), randomKey(t), payerPath, false))

	// The stale confirm checkpoint is rotated away so the next confirm run
	// starts from this send's output.
	ok, err := store.Exists(confirmedPath + ".bak1")
	require.NoError(t, err)
	assert.True(t, ok)

	sent := loadList(t, store.StagePath(listPath, store.StageSent))
	require.Len(t, sent, 2)
	counts := sent.CountByStatus()
	assert.Equal(t, 1, counts["unconfirmed"])
	assert.Equal(t, 1, counts["succeeded"])
}

func TestSendRecoveryPersistsReconciledList(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	confirmedPath := store.StagePath(listPath, store.StageConfirmed)

	landed := qualifiedEntry(t)
	landed.Status = wallet.Unconfirmed(sigByte(4))
	require.NoError(t, store.SaveList(confirmedPath, wallet.List{landed}))

	payerPath, _ := writeKeypairFile(t, dir)
	cli := &fakeLedger{
		mintInfo: ledger.MintInfo{TokenProgram: randomKey(t), Decimals: 6},
		finalityFn: func(solana.Signature) (bool, error) {
			return true, nil
		},
	}
	stages := newStages(cli, listPath)

	require.NoError(t, stages.Send(context.Background(), randomKey(t), payerPath, false))

	// The reconciliation pass promoted the entry and left nothing to send.
	// The promotion must survive on disk even though the old confirm
	// checkpoint was rotated away and no batch was submitted.
	assert.Empty(t, cli.submitted)
	sent := loadList(t, store.StagePath(listPath, store.StageSent))
	require.Len(t, sent, 1)
	assert.Equal(t, wallet.KindSucceeded, sent[0].Status.Kind())
	sig, ok := sent[0].Status.Signature()
	require.True(t, ok)
	assert.Equal(t, sigByte(4), sig)
}

func TestSendRecoveryPersistsBeforePrompt(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	confirmedPath := store.StagePath(listPath, store.StageConfirmed)

	landed := qualifiedEntry(t)
	landed.Status = wallet.Unconfirmed(sigByte(6))
	retriable := qualifiedEntry(t)
	retriable.Status = wallet.Failed("could not confirm transaction")
	require.NoError(t, store.SaveList(confirmedPath, wallet.List{landed, retriable}))

	payerPath, _ := writeKeypairFile(t, dir)
	cli := &fakeLedger{
		mintInfo: ledger.MintInfo{TokenProgram: randomKey(t), Decimals: 6},
		finalityFn: func(solana.Signature) (bool, error) {
			return true, nil
		},
	}
	stages := newStages(cli, listPath)
	stages.Prompt = func(string) bool { return false }

	require.NoError(t, stages.Send(context.Background(), randomKey(t), payerPath, false))

	// The operator declined resubmission, but the reconciliation outcome is
	// already checkpointed: one promotion, one entry rewound for later.
	assert.Empty(t, cli.submitted)
	sent := loadList(t, store.StagePath(listPath, store.StageSent))
	counts := sent.CountByStatus()
	assert.Equal(t, 1, counts["succeeded"])
	assert.Equal(t, 1, counts["qualified"])
}

func TestSendDemotesLingeringUnconfirmedBeforeResubmission(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	confirmedPath := store.StagePath(listPath, store.StageConfirmed)

	lingering := qualifiedEntry(t)
	lingering.Status = wallet.Unconfirmed(sigByte(5))
	require.NoError(t, store.SaveList(confirmedPath, wallet.List{lingering}))

	payerPath, _ := writeKeypairFile(t, dir)
	cli := &fakeLedger{
		mintInfo: ledger.MintInfo{TokenProgram: randomKey(t), Decimals: 6},
		finalityFn: func(sig solana.Signature) (bool, error) {
			return true, nil
		},
	}
	stages := newStages(cli, listPath)

	require.NoError(t, stages.Send(context.Background(), randomKey(t), payerPath, false))

	// The reconciliation pass found the transaction finalized, so nothing
	// is resubmitted.
	assert.Equal(t, 1, cli.finalityCalls)
	assert.Empty(t, cli.submitted)
}

func TestConfirmStageRequiresCheckpoint(t *testing.T) {
	stages := newStages(&fakeLedger{}, filepath.Join(t.TempDir(), "wallets.csv"))
	err := stages.Confirm(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrStageNotReady)
}

func TestConfirmPromotesAndWritesCheckpoint(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	sentPath := store.StagePath(listPath, store.StageSent)
	sig := sigByte(1)
	require.NoError(t, store.SaveList(sentPath, wallet.List{
		unconfirmedEntry(t, sig),
		unconfirmedEntry(t, sig),
	}))

	cli := &fakeLedger{
		finalityFn: func(solana.Signature) (bool, error) { return true, nil },
	}
	stages := newStages(cli, listPath)
	require.NoError(t, stages.Confirm(context.Background()))

	confirmed := loadList(t, store.StagePath(listPath, store.StageConfirmed))
	require.Len(t, confirmed, 2)
	for _, e := range confirmed {
		assert.Equal(t, wallet.KindSucceeded, e.Status.Kind())
	}
}

func TestConfirmDemotesWithAmbiguityTag(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	sentPath := store.StagePath(listPath, store.StageSent)
	require.NoError(t, store.SaveList(sentPath, wallet.List{unconfirmedEntry(t, sigByte(2))}))

	cli := &fakeLedger{}
	stages := newStages(cli, listPath)
	require.NoError(t, stages.Confirm(context.Background()))

	// One finality lookup per attempt, never finalized.
	assert.Equal(t, 3, cli.finalityCalls)
	confirmed := loadList(t, store.StagePath(listPath, store.StageConfirmed))
	require.Len(t, confirmed, 1)
	require.Equal(t, wallet.KindFailed, confirmed[0].Status.Kind())
	reason, _ := confirmed[0].Status.Reason()
	assert.Contains(t, reason, "reconcile manually")
}

func TestConfirmRetriesFromOwnCheckpoint(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	confirmedPath := store.StagePath(listPath, store.StageConfirmed)
	require.NoError(t, store.SaveList(confirmedPath, wallet.List{unconfirmedEntry(t, sigByte(3))}))

	cli := &fakeLedger{
		finalityFn: func(solana.Signature) (bool, error) { return true, nil },
	}
	stages := newStages(cli, listPath)
	require.NoError(t, stages.Confirm(context.Background()))

	confirmed := loadList(t, confirmedPath)
	require.Len(t, confirmed, 1)
	assert.Equal(t, wallet.KindSucceeded, confirmed[0].Status.Kind())
}

func TestDisplayReportsCheckpoint(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "wallets.csv")
	require.NoError(t, store.SaveList(listPath, wallet.List{qualifiedEntry(t)}))

	stages := newStages(&fakeLedger{}, listPath)
	assert.NoError(t, stages.Display(listPath))
	assert.Error(t, stages.Display(filepath.Join(dir, "absent.csv")))
}
