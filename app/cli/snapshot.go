package cli

import (
	"github.com/canopy-network/dropx/pkg/snapshot"
	"github.com/canopy-network/dropx/pkg/store"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) snapshotCmd() *cobra.Command {
	var (
		mintStr      string
		minBalance   uint64
		payerPath    string
		blacklistRaw []string
		snapshotPath string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Take a balance snapshot of every holder of a mint",
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := solana.PublicKeyFromBase58(mintStr)
			if err != nil {
				return err
			}
			blacklist, err := parsePubkeys(blacklistRaw)
			if err != nil {
				return err
			}
			if payerPath != "" {
				// The funding wallet never snapshots itself.
				key, kerr := solana.PrivateKeyFromSolanaKeygenFile(payerPath)
				if kerr != nil {
					return kerr
				}
				blacklist = append(blacklist, key.PublicKey())
			}

			snap, err := snapshot.Take(cmd.Context(), a.client(), snapshot.Params{
				Mint:           mint,
				MinimumBalance: minBalance,
				Blacklist:      blacklist,
			}, a.Logger)
			if err != nil {
				return err
			}
			if a.dryRun {
				a.Logger.Info("Dry run: skipping snapshot write", zap.String("path", snapshotPath))
				return nil
			}
			return store.SaveSnapshot(snapshotPath, snap)
		},
	}
	cmd.Flags().StringVarP(&mintStr, "mint", "m", "", "mint pubkey of the token to snapshot")
	cmd.Flags().Uint64VarP(&minBalance, "minimum-balance", "b", a.Cfg.MinimumBalance, "minimum balance (atomic) for inclusion")
	cmd.Flags().StringVarP(&payerPath, "payer", "p", "", "path to the funding keypair, excluded from the snapshot")
	cmd.Flags().StringArrayVarP(&blacklistRaw, "blacklist", "x", nil, "pubkeys to exclude from the snapshot")
	cmd.Flags().StringVarP(&snapshotPath, "snapshot-path", "s", "snapshot.csv", "path to the snapshot checkpoint")
	_ = cmd.MarkFlagRequired("mint")
	return cmd
}
