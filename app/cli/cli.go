// Package cli wires the dropx subcommands: snapshot, allocate, check, send,
// confirm, display. The commands are thin — every decision lives in the
// pipeline packages — and a global --dry-run suppresses all checkpoint
// writes and all network-mutating calls.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/canopy-network/dropx/pkg/config"
	"github.com/canopy-network/dropx/pkg/ledger"
	"github.com/canopy-network/dropx/pkg/logging"
	"github.com/canopy-network/dropx/pkg/pipeline"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	Logger *zap.Logger
	Cfg    *config.Config

	rpcURL    string
	listPath  string
	dryRun    bool
	assumeYes bool
}

// Execute runs the CLI. Any unrecovered error exits non-zero.
func Execute(ctx context.Context) {
	_ = godotenv.Load()

	logger, err := logging.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	a := &app{Logger: logger, Cfg: config.Load()}
	root := a.rootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("Command failed", zap.Error(err))
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dropx",
		Short:         "Resumable proportional token airdrop sender",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.rpcURL, "rpc-url", "u", a.Cfg.RPCEndpoint, "Solana JSON-RPC endpoint")
	root.PersistentFlags().StringVarP(&a.listPath, "wallet-list", "w", "wallet_list.csv", "path to the wallet list checkpoint")
	root.PersistentFlags().BoolVarP(&a.dryRun, "dry-run", "d", false, "skip all checkpoint writes and all transaction submissions")
	root.PersistentFlags().BoolVarP(&a.assumeYes, "yes", "y", false, "skip interactive confirmation prompts")

	root.AddCommand(
		a.snapshotCmd(),
		a.allocateCmd(),
		a.checkCmd(),
		a.sendCmd(),
		a.confirmCmd(),
		a.displayCmd(),
	)
	return root
}

func (a *app) client() ledger.Client {
	return ledger.New(ledger.Opts{
		Endpoint:    a.rpcURL,
		WaitTimeout: a.Cfg.SubmitWaitTimeout,
	})
}

func (a *app) stages() *pipeline.Stages {
	return &pipeline.Stages{
		Cfg:      a.Cfg,
		Client:   a.client(),
		Logger:   a.Logger,
		ListPath: a.listPath,
		DryRun:   a.dryRun,
		Prompt:   a.prompt,
	}
}

func (a *app) prompt(msg string) bool {
	if a.assumeYes {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", msg)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func parsePubkeys(raw []string) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(raw))
	for _, s := range raw {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("malformed pubkey %q: %w", s, err)
		}
		keys = append(keys, pk)
	}
	return keys, nil
}
