package cli

import (
	"github.com/canopy-network/dropx/pkg/allocate"
	"github.com/spf13/cobra"
)

func (a *app) allocateCmd() *cobra.Command {
	var (
		snapshotPath string
		amount       uint64
		minBalance   uint64
		blacklistRaw []string
	)
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Generate the wallet list from a snapshot and a total pool amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			blacklist, err := parsePubkeys(blacklistRaw)
			if err != nil {
				return err
			}
			return a.stages().Allocate(snapshotPath, allocate.Params{
				Total:          amount,
				MinimumBalance: minBalance,
				Blacklist:      blacklist,
			})
		},
	}
	cmd.Flags().StringVarP(&snapshotPath, "snapshot-path", "s", "snapshot.csv", "path to the snapshot checkpoint")
	cmd.Flags().Uint64VarP(&amount, "amount", "a", 0, "total amount (atomic) to distribute")
	cmd.Flags().Uint64VarP(&minBalance, "minimum-balance", "b", 0, "drop holders below this balance before allocating")
	cmd.Flags().StringArrayVarP(&blacklistRaw, "blacklist", "x", nil, "pubkeys to exclude before allocating")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
