package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"solana-revival-scanner/internal/config"
)

// Shared flags, resolved against the environment in setup before any
// subcommand runs.
var (
	configPath    string
	logLevel      string
	birdeyeKey    string
	rpcEndpoint   string
	goplusKey     string
	postgresDSN   string
	clickhouseDSN string
	redisAddr     string
	redisPassword string
	useMemory     bool

	cfg    config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Solana revival token scanner and paper trader",
	Long: `scanner discovers Solana tokens recovering from a post-launch crash,
scores them on price structure, smart money, volume and social signals,
and trades the best candidates in a simulated portfolio.

Subcommands:
  scan    run one discovery cycle and open positions
  run     continuous mode: scan ticker, exit monitor and dashboard
  report  generate markdown and CSV reports from the ledger
  reset   wipe the paper portfolio back to starting cash`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to YAML config file (env CONFIG_PATH, defaults built in)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (env LOG_LEVEL, default info)")
	pf.StringVar(&birdeyeKey, "birdeye-key", "", "BirdEye API key (env BIRDEYE_API_KEY)")
	pf.StringVar(&rpcEndpoint, "rpc-endpoint", "", "Solana RPC HTTP endpoint (env SOLANA_RPC_ENDPOINT)")
	pf.StringVar(&goplusKey, "goplus-key", "", "GoPlus API key, optional (env GOPLUS_API_KEY)")
	pf.StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL connection string (env POSTGRES_DSN)")
	pf.StringVar(&clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string (env CLICKHOUSE_DSN)")
	pf.StringVar(&redisAddr, "redis-addr", "", "Redis address for shared caches, optional (env REDIS_ADDR)")
	pf.StringVar(&redisPassword, "redis-password", "", "Redis password (env REDIS_PASSWORD)")
	pf.BoolVar(&useMemory, "use-memory", false, "Use in-memory storage instead of PostgreSQL and ClickHouse")
}

// setup resolves flags against the environment, builds the logger and loads
// the configuration. Flags win over environment variables.
func setup(cmd *cobra.Command, args []string) error {
	// .env file is optional
	_ = godotenv.Load()

	fillFromEnv(&configPath, "CONFIG_PATH")
	fillFromEnv(&logLevel, "LOG_LEVEL")
	fillFromEnv(&birdeyeKey, "BIRDEYE_API_KEY")
	fillFromEnv(&rpcEndpoint, "SOLANA_RPC_ENDPOINT")
	fillFromEnv(&goplusKey, "GOPLUS_API_KEY")
	fillFromEnv(&postgresDSN, "POSTGRES_DSN")
	fillFromEnv(&clickhouseDSN, "CLICKHOUSE_DSN")
	fillFromEnv(&redisAddr, "REDIS_ADDR")
	fillFromEnv(&redisPassword, "REDIS_PASSWORD")

	if logLevel == "" {
		logLevel = "info"
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", logLevel, err)
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger.Info().Str("path", configPath).Msg("configuration loaded")
	} else {
		cfg = config.Default()
	}
	return nil
}

func fillFromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

// requireSourceFlags checks the flags the live scan path cannot run without.
func requireSourceFlags() error {
	if birdeyeKey == "" {
		return fmt.Errorf("--birdeye-key is required (env BIRDEYE_API_KEY)")
	}
	if rpcEndpoint == "" {
		return fmt.Errorf("--rpc-endpoint is required (env SOLANA_RPC_ENDPOINT)")
	}
	return nil
}

// requireStorageFlags checks the DSNs unless in-memory storage is selected.
func requireStorageFlags() error {
	if !useMemory && (postgresDSN == "" || clickhouseDSN == "") {
		return fmt.Errorf("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
