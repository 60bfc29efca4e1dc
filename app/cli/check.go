package cli

import (
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

func (a *app) checkCmd() *cobra.Command {
	var mintStr string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check every recipient's destination eligibility",
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := solana.PublicKeyFromBase58(mintStr)
			if err != nil {
				return err
			}
			return a.stages().Check(cmd.Context(), mint)
		},
	}
	cmd.Flags().StringVarP(&mintStr, "mint", "m", "", "mint pubkey of the token to distribute")
	_ = cmd.MarkFlagRequired("mint")
	return cmd
}
