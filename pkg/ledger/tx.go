package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ComputeBudgetProgramID is the native compute-budget program.
var ComputeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// Compute-budget instruction discriminators.
const (
	computeBudgetSetUnitLimit = 0x02
	computeBudgetSetUnitPrice = 0x03
)

// transferChecked is the shared Token / Token-2022 instruction tag.
const transferCheckedTag = 12

// AssociatedTokenAddress derives the holder's deposit account for the mint
// under the given token program. Built by hand rather than through the SDK
// helper because that helper pins the legacy token program, and Token-2022
// mints derive against their own program id.
func AssociatedTokenAddress(holder, tokenProgram, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{holder.Bytes(), tokenProgram.Bytes(), mint.Bytes()},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive token address for %s: %w", holder, err)
	}
	return addr, nil
}

// ComputeBudgetInstructions returns the two fixed priority instructions
// prepended to every transfer batch. Their cost is constant regardless of
// batch size.
func ComputeBudgetInstructions(unitLimit uint32, unitPrice uint64) []solana.Instruction {
	limitData := make([]byte, 5)
	limitData[0] = computeBudgetSetUnitLimit
	binary.LittleEndian.PutUint32(limitData[1:], unitLimit)

	priceData := make([]byte, 9)
	priceData[0] = computeBudgetSetUnitPrice
	binary.LittleEndian.PutUint64(priceData[1:], unitPrice)

	return []solana.Instruction{
		solana.NewInstruction(ComputeBudgetProgramID, solana.AccountMetaSlice{}, limitData),
		solana.NewInstruction(ComputeBudgetProgramID, solana.AccountMetaSlice{}, priceData),
	}
}

// TransferCheckedInstruction builds one token transfer from source to
// destination, parameterized by the owning token program so Token-2022
// mints work unchanged.
func TransferCheckedInstruction(tokenProgram, source, mint, destination, owner solana.PublicKey, amount uint64, decimals uint8) solana.Instruction {
	data := make([]byte, 10)
	data[0] = transferCheckedTag
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals

	return solana.NewInstruction(tokenProgram, solana.AccountMetaSlice{
		solana.Meta(source).WRITE(),
		solana.Meta(mint),
		solana.Meta(destination).WRITE(),
		solana.Meta(owner).SIGNER(),
	}, data)
}

// TransferLeg is one recipient's slice of a batch transaction.
type TransferLeg struct {
	Destination solana.PublicKey
	Amount      uint64
}

// TransferBatchParams carry everything a batch transaction needs besides
// its legs.
type TransferBatchParams struct {
	Payer            solana.PrivateKey
	SourceAccount    solana.PublicKey
	Mint             solana.PublicKey
	TokenProgram     solana.PublicKey
	Decimals         uint8
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
	Blockhash        solana.Hash
}

// NewTransferBatchTx assembles and signs one transaction carrying the two
// compute-budget instructions followed by one transfer per leg.
func NewTransferBatchTx(p TransferBatchParams, legs []TransferLeg) (*solana.Transaction, error) {
	payerKey := p.Payer.PublicKey()
	ixs := ComputeBudgetInstructions(p.ComputeUnitLimit, p.ComputeUnitPrice)
	for _, leg := range legs {
		ixs = append(ixs, TransferCheckedInstruction(
			p.TokenProgram, p.SourceAccount, p.Mint, leg.Destination, payerKey,
			leg.Amount, p.Decimals,
		))
	}

	tx, err := solana.NewTransaction(ixs, p.Blockhash, solana.TransactionPayer(payerKey))
	if err != nil {
		return nil, fmt.Errorf("build batch transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payerKey) {
			return &p.Payer
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign batch transaction: %w", err)
	}
	return tx, nil
}
