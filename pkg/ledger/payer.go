package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Payer bundles the funding keypair with the mint context every transfer
// shares: the source token account, the owning token program and the mint
// decimals.
type Payer struct {
	Key           solana.PrivateKey
	SourceAccount solana.PublicKey
	Mint          solana.PublicKey
	TokenProgram  solana.PublicKey
	Decimals      uint8
}

// NewPayer loads the funding keypair from a solana-keygen file and derives
// its source token account for the mint.
func NewPayer(keypairPath string, mint solana.PublicKey, info MintInfo) (Payer, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
	if err != nil {
		return Payer{}, fmt.Errorf("load payer keypair %s: %w", keypairPath, err)
	}
	source, err := AssociatedTokenAddress(key.PublicKey(), info.TokenProgram, mint)
	if err != nil {
		return Payer{}, err
	}
	return Payer{
		Key:           key,
		SourceAccount: source,
		Mint:          mint,
		TokenProgram:  info.TokenProgram,
		Decimals:      info.Decimals,
	}, nil
}
