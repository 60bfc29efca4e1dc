package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: "Reconcile submitted transfers against ledger finality",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.stages().Confirm(cmd.Context())
		},
	}
}
