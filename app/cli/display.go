package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) displayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "display",
		Short: "Show per-status counts of a wallet list checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.stages().Display(a.listPath)
		},
	}
}
