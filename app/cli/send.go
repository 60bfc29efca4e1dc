package cli

import (
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

func (a *app) sendCmd() *cobra.Command {
	var (
		mintStr   string
		payerPath string
		wait      bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Submit batched transfers for every qualified recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := solana.PublicKeyFromBase58(mintStr)
			if err != nil {
				return err
			}
			return a.stages().Send(cmd.Context(), mint, payerPath, wait)
		},
	}
	cmd.Flags().StringVarP(&mintStr, "mint", "m", "", "mint pubkey of the token to distribute")
	cmd.Flags().StringVarP(&payerPath, "payer", "p", "", "path to the funding keypair")
	cmd.Flags().BoolVar(&wait, "wait", false, "block for finality per batch (entries still require the confirm stage)")
	_ = cmd.MarkFlagRequired("mint")
	_ = cmd.MarkFlagRequired("payer")
	return cmd
}
