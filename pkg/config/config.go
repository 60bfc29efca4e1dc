package config

import (
	"time"

	"github.com/canopy-network/dropx/pkg/utils"
)

// Config carries every process-wide tunable. All fields load from the
// environment so defaults stay out of the call sites.
type Config struct {
	// RPCEndpoint is the Solana JSON-RPC URL used by every network call.
	RPCEndpoint string

	// LookupChunkSize bounds how many destination accounts a single
	// multi-account lookup may carry during qualification checking.
	LookupChunkSize int

	// TransferBatchSize bounds how many transfer instructions a single
	// transaction may carry. The protocol ceiling depends on the
	// transaction size limit, not on this tool, so raising it past what a
	// packed transaction can hold will make every submission fail.
	TransferBatchSize int

	// CheckMaxAttempts bounds the qualification stage retry loop.
	CheckMaxAttempts int

	// SendMaxAttempts bounds the transfer stage retry loop. Kept at 1 by
	// default: resubmitting failed transfers is an operator decision.
	SendMaxAttempts int

	// ConfirmMaxAttempts bounds the confirmation stage retry loop.
	ConfirmMaxAttempts int

	// ConfirmInterval separates confirmation attempts, giving submitted
	// transactions time to reach finality.
	ConfirmInterval time.Duration

	// ConfirmWorkers bounds parallel finality lookups. Lookups are
	// read-only, so unlike submissions they need no ordering.
	ConfirmWorkers int

	// SubmitWaitTimeout bounds how long a submit-and-wait call polls for
	// finality before handing the transaction to the confirmation stage.
	SubmitWaitTimeout time.Duration

	// ComputeUnitLimit and ComputeUnitPrice parameterize the two
	// compute-budget instructions prepended to every transfer batch.
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64

	// MinimumBalance is the default snapshot inclusion threshold in token
	// atomic units.
	MinimumBalance uint64
}

// Load reads the configuration from the environment.
//
// Defaults:
//
//	RPC_ENDPOINT          https://api.mainnet-beta.solana.com
//	LOOKUP_CHUNK_SIZE     100
//	TRANSFER_BATCH_SIZE   18
//	CHECK_MAX_ATTEMPTS    4
//	SEND_MAX_ATTEMPTS     1
//	CONFIRM_MAX_ATTEMPTS  3
//	CONFIRM_INTERVAL      90s
//	CONFIRM_WORKERS       4
//	SUBMIT_WAIT_TIMEOUT   60s
//	COMPUTE_UNIT_LIMIT    1000000
//	COMPUTE_UNIT_PRICE    1
//	MINIMUM_BALANCE       0
func Load() *Config {
	return &Config{
		RPCEndpoint:        utils.Env("RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
		LookupChunkSize:    utils.EnvInt("LOOKUP_CHUNK_SIZE", 100),
		TransferBatchSize:  utils.EnvInt("TRANSFER_BATCH_SIZE", 18),
		CheckMaxAttempts:   utils.EnvInt("CHECK_MAX_ATTEMPTS", 4),
		SendMaxAttempts:    utils.EnvInt("SEND_MAX_ATTEMPTS", 1),
		ConfirmMaxAttempts: utils.EnvInt("CONFIRM_MAX_ATTEMPTS", 3),
		ConfirmInterval:    utils.EnvDuration("CONFIRM_INTERVAL", 90*time.Second),
		ConfirmWorkers:     utils.EnvInt("CONFIRM_WORKERS", 4),
		SubmitWaitTimeout:  utils.EnvDuration("SUBMIT_WAIT_TIMEOUT", 60*time.Second),
		ComputeUnitLimit:   uint32(utils.EnvUint64("COMPUTE_UNIT_LIMIT", 1_000_000)),
		ComputeUnitPrice:   utils.EnvUint64("COMPUTE_UNIT_PRICE", 1),
		MinimumBalance:     utils.EnvUint64("MINIMUM_BALANCE", 0),
	}
}
