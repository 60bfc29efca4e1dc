package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TokenAccountSize is the base token account length, shared by Token and
// Token-2022 (extensions only ever grow it).
const TokenAccountSize = 165

// SPL token account layout offsets.
const (
	tokenAccountMintOffset  = 0
	tokenAccountOwnerOffset = 32
	tokenAccountOwnerLen    = 32
	tokenAccountAmountLen   = 8

	// mint layout: COption<Pubkey> authority (36) + supply (8) = 44.
	mintDecimalsOffset = 44
)

// Opts tunes the RPC-backed client.
type Opts struct {
	Endpoint string

	// WaitTimeout bounds SubmitAndWait's finality polling.
	WaitTimeout time.Duration

	// WaitPollInterval separates SubmitAndWait's finality polls.
	WaitPollInterval time.Duration
}

type rpcClient struct {
	rpc  *rpc.Client
	opts Opts
}

// New returns a Client backed by the Solana JSON-RPC endpoint.
func New(opts Opts) Client {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 60 * time.Second
	}
	if opts.WaitPollInterval <= 0 {
		opts.WaitPollInterval = 5 * time.Second
	}
	return &rpcClient{rpc: rpc.New(opts.Endpoint), opts: opts}
}

func (c *rpcClient) Account(ctx context.Context, addr solana.PublicKey) (*AccountInfo, error) {
	res, err := c.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account %s: %w", addr, err)
	}
	if res == nil || res.Value == nil {
		return nil, ErrNotFound
	}
	return &AccountInfo{
		Owner:    res.Value.Owner,
		Lamports: res.Value.Lamports,
		Data:     res.Value.Data.GetBinary(),
	}, nil
}

func (c *rpcClient) MultipleAccounts(ctx context.Context, addrs []solana.PublicKey) ([]*AccountInfo, error) {
	res, err := c.rpc.GetMultipleAccountsWithOpts(ctx, addrs, &rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("get multiple accounts: %w", err)
	}
	infos := make([]*AccountInfo, len(addrs))
	for i, acc := range res.Value {
		if acc == nil {
			continue
		}
		infos[i] = &AccountInfo{
			Owner:    acc.Owner,
			Lamports: acc.Lamports,
			Data:     acc.Data.GetBinary(),
		}
	}
	return infos, nil
}

func (c *rpcClient) TokenAccountsByMint(ctx context.Context, tokenProgram, mint solana.PublicKey) ([]TokenBalance, error) {
	// Slice each account down to owner + amount; the full 165-byte state is
	// dead weight at snapshot scale.
	sliceOffset := uint64(tokenAccountOwnerOffset)
	sliceLen := uint64(tokenAccountOwnerLen + tokenAccountAmountLen)
	res, err := c.rpc.GetProgramAccountsWithOpts(ctx, tokenProgram, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentProcessed,
		Encoding:   solana.EncodingBase64,
		DataSlice:  &rpc.DataSlice{Offset: &sliceOffset, Length: &sliceLen},
		Filters: []rpc.RPCFilter{
			{DataSize: TokenAccountSize},
			{Memcmp: &rpc.RPCFilterMemcmp{
				Offset: tokenAccountMintOffset,
				Bytes:  solana.Base58(mint.Bytes()),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scan token accounts for mint %s: %w", mint, err)
	}

	balances := make([]TokenBalance, 0, len(res))
	for _, keyed := range res {
		data := keyed.Account.Data.GetBinary()
		if len(data) < tokenAccountOwnerLen+tokenAccountAmountLen {
			return nil, fmt.Errorf("token account %s: short data slice (%d bytes)", keyed.Pubkey, len(data))
		}
		balances = append(balances, TokenBalance{
			Owner:  solana.PublicKeyFromBytes(data[:tokenAccountOwnerLen]),
			Amount: binary.LittleEndian.Uint64(data[tokenAccountOwnerLen : tokenAccountOwnerLen+tokenAccountAmountLen]),
		})
	}
	return balances, nil
}

func (c *rpcClient) MintInfo(ctx context.Context, mint solana.PublicKey) (MintInfo, error) {
	acc, err := c.Account(ctx, mint)
	if err != nil {
		return MintInfo{}, fmt.Errorf("fetch mint %s: %w", mint, err)
	}
	if len(acc.Data) <= mintDecimalsOffset {
		return MintInfo{}, fmt.Errorf("mint %s: account data too short (%d bytes)", mint, len(acc.Data))
	}
	return MintInfo{
		TokenProgram: acc.Owner,
		Decimals:     acc.Data[mintDecimalsOffset],
	}, nil
}

func (c *rpcClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return res.Value.Blockhash, nil
}

func (c *rpcClient) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

// SubmitAndWait submits and then polls for finality until the wait timeout.
// A wait that runs out is not an error: the caller records the entry as
// Unconfirmed either way and the reconciliation stage settles it.
func (c *rpcClient) SubmitAndWait(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.Submit(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}

	deadline := time.Now().Add(c.opts.WaitTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return sig, nil
		case <-time.After(c.opts.WaitPollInterval):
		}
		finalized, ferr := c.Finality(ctx, sig)
		if ferr == nil && finalized {
			return sig, nil
		}
	}
	return sig, nil
}

func (c *rpcClient) Finality(ctx context.Context, sig solana.Signature) (bool, error) {
	res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return false, fmt.Errorf("get signature status %s: %w", sig, err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		// Unknown to the ledger yet: not finalized, not an error.
		return false, nil
	}
	st := res.Value[0]
	return st.ConfirmationStatus == rpc.ConfirmationStatusFinalized && st.Err == nil, nil
}

func (c *rpcClient) Simulate(ctx context.Context, tx *solana.Transaction) ([]string, error) {
	res, err := c.rpc.SimulateTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("simulate transaction: %w", err)
	}
	if res.Value == nil {
		return nil, nil
	}
	logs := res.Value.Logs
	if res.Value.Err != nil {
		return logs, fmt.Errorf("simulation failed: %v", res.Value.Err)
	}
	return logs, nil
}
