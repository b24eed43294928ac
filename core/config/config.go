package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	DataDirKey         = "data-dir"
	APIAddrKey         = "api-addr"
	GenesisKey         = "genesis"
	KeyDirKey          = "key-dir"
	LogLevelKey        = "log-level"
	LogDevKey          = "log-dev"
	RoundIntervalKey   = "round-interval"
	ProposalTimeoutKey = "proposal-timeout"
	BlockProducerKey   = "block-producer"
	MempoolSizeKey     = "mempool-size"
	TxMaxAgeKey        = "tx-max-age"
	OracleURLKey       = "oracle-url"
)

// Environment variables, read after the optional .env file.
const (
	DataDirEnv         = "EMBER_DATA_DIR"
	APIAddrEnv         = "EMBER_API_ADDR"
	GenesisEnv         = "EMBER_GENESIS"
	KeyDirEnv          = "EMBER_KEY_DIR"
	LogLevelEnv        = "EMBER_LOG_LEVEL"
	LogDevEnv          = "EMBER_LOG_DEV"
	DEKEnv             = "EMBER_DEK"
	JWTSecretEnv       = "EMBER_JWT_SECRET"
	RoundIntervalEnv   = "EMBER_ROUND_INTERVAL"
	ProposalTimeoutEnv = "EMBER_PROPOSAL_TIMEOUT"
	BlockProducerEnv   = "EMBER_BLOCK_PRODUCER"
	MempoolSizeEnv     = "EMBER_MEMPOOL_SIZE"
	TxMaxAgeEnv        = "EMBER_TX_MAX_AGE"
	OracleURLEnv       = "EMBER_ORACLE_URL"
)

// Config is the node configuration. Secrets (DEK, JWTSecret) are only
// read from the environment, never from flags.
type Config struct {
	DataDir         string
	APIAddr         string
	GenesisPath     string
	KeyDir          string
	LogLevel        string
	LogDevelopment  bool
	DEK             string
	JWTSecret       string
	RoundInterval   time.Duration
	ProposalTimeout time.Duration // zero keeps the genesis value
	BlockProducer   bool
	MempoolSize     int
	TxMaxAge        time.Duration
	OracleURL       string
}

func Default() Config {
	return Config{
		DataDir:       "data",
		APIAddr:       ":8080",
		GenesisPath:   "genesis.json",
		KeyDir:        "keys",
		LogLevel:      "info",
		RoundInterval: 5 * time.Second,
		BlockProducer: true,
		MempoolSize:   10000,
		TxMaxAge:      10 * time.Minute,
	}
}

func AddFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String(DataDirKey, d.DataDir, "Directory holding the block database")
	flags.String(APIAddrKey, d.APIAddr, "Listen address of the HTTP API")
	flags.String(GenesisKey, d.GenesisPath, "Genesis file")
	flags.String(KeyDirKey, d.KeyDir, "Directory holding local validator keypairs")
	flags.String(LogLevelKey, d.LogLevel, "Log level (debug, info, warn, error)")
	flags.Bool(LogDevKey, d.LogDevelopment, "Human-readable development logging")
	flags.Duration(RoundIntervalKey, d.RoundInterval, "Interval between consensus rounds")
	flags.Duration(ProposalTimeoutKey, d.ProposalTimeout, "Age after which uncommitted candidates are rejected")
	flags.Bool(BlockProducerKey, d.BlockProducer, "Run consensus rounds with local validator keys")
	flags.Int(MempoolSizeKey, d.MempoolSize, "Maximum pending transactions")
	flags.Duration(TxMaxAgeKey, d.TxMaxAge, "Age after which pending transactions expire")
	flags.String(OracleURLKey, d.OracleURL, "Price feed URL; empty uses the fixed native price")
}

// Load reads envFile (a missing file is ignored), then the environment,
// then any flag explicitly set on flags. flags may be nil.
func Load(envFile string, flags *pflag.FlagSet) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg := Default()
	if err := cfg.fromEnv(); err != nil {
		return nil, err
	}
	if flags != nil {
		if err := cfg.fromFlags(flags); err != nil {
			return nil, err
		}
	}
	if cfg.MempoolSize <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %d", MempoolSizeKey, cfg.MempoolSize)
	}
	if cfg.RoundInterval <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %s", RoundIntervalKey, cfg.RoundInterval)
	}
	return &cfg, nil
}

func (c *Config) fromEnv() error {
	setString(&c.DataDir, DataDirEnv)
	setString(&c.APIAddr, APIAddrEnv)
	setString(&c.GenesisPath, GenesisEnv)
	setString(&c.KeyDir, KeyDirEnv)
	setString(&c.LogLevel, LogLevelEnv)
	setString(&c.DEK, DEKEnv)
	setString(&c.JWTSecret, JWTSecretEnv)
	setString(&c.OracleURL, OracleURLEnv)
	for _, err := range []error{
		setBool(&c.LogDevelopment, LogDevEnv),
		setBool(&c.BlockProducer, BlockProducerEnv),
		setDuration(&c.RoundInterval, RoundIntervalEnv),
		setDuration(&c.ProposalTimeout, ProposalTimeoutEnv),
		setDuration(&c.TxMaxAge, TxMaxAgeEnv),
		setInt(&c.MempoolSize, MempoolSizeEnv),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) fromFlags(flags *pflag.FlagSet) error {
	var err error
	visit := func(key string, apply func() error) {
		if err == nil && flags.Lookup(key) != nil && flags.Changed(key) {
			err = apply()
		}
	}
	visit(DataDirKey, func() (e error) { c.DataDir, e = flags.GetString(DataDirKey); return })
	visit(APIAddrKey, func() (e error) { c.APIAddr, e = flags.GetString(APIAddrKey); return })
	visit(GenesisKey, func() (e error) { c.GenesisPath, e = flags.GetString(GenesisKey); return })
	visit(KeyDirKey, func() (e error) { c.KeyDir, e = flags.GetString(KeyDirKey); return })
	visit(LogLevelKey, func() (e error) { c.LogLevel, e = flags.GetString(LogLevelKey); return })
	visit(LogDevKey, func() (e error) { c.LogDevelopment, e = flags.GetBool(LogDevKey); return })
	visit(RoundIntervalKey, func() (e error) { c.RoundInterval, e = flags.GetDuration(RoundIntervalKey); return })
	visit(ProposalTimeoutKey, func() (e error) { c.ProposalTimeout, e = flags.GetDuration(ProposalTimeoutKey); return })
	visit(BlockProducerKey, func() (e error) { c.BlockProducer, e = flags.GetBool(BlockProducerKey); return })
	visit(MempoolSizeKey, func() (e error) { c.MempoolSize, e = flags.GetInt(MempoolSizeKey); return })
	visit(TxMaxAgeKey, func() (e error) { c.TxMaxAge, e = flags.GetDuration(TxMaxAgeKey); return })
	visit(OracleURLKey, func() (e error) { c.OracleURL, e = flags.GetString(OracleURLKey); return })
	return err
}

func setString(dst *string, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, env string) error {
	v, ok := os.LookupEnv(env)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, env string) error {
	v, ok := os.LookupEnv(env)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, env string) error {
	v, ok := os.LookupEnv(env)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*dst = n
	return nil
}
