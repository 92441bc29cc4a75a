// Package config loads client settings from the environment, an optional
// .env file and an optional config file, and turns them into the Config
// structs of the exchange, tracker and ws packages.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/banky/hyperliquid-exchange/exchange"
	"github.com/banky/hyperliquid-exchange/internal/logging"
	"github.com/banky/hyperliquid-exchange/signer"
	"github.com/banky/hyperliquid-exchange/tracker"
	"github.com/banky/hyperliquid-exchange/ws"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/mo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const EnvPrefix = "HL"

var ErrNoSigner = errors.New("config: neither a private key nor a keystore is configured")

type Config struct {
	Env     string        `mapstructure:"env"`
	Network string        `mapstructure:"network"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	SignerConfig SignerConfig    `mapstructure:"signer"`
	Account      AccountConfig   `mapstructure:"account"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
	Batch        BatchConfig     `mapstructure:"batch"`
}

type SignerConfig struct {
	PrivateKey   string `mapstructure:"private_key"`
	KeystorePath string `mapstructure:"keystore_path"`
	Passphrase   string `mapstructure:"passphrase"`
}

// AccountConfig holds hex addresses. Empty means unset.
type AccountConfig struct {
	Address string `mapstructure:"address"`
	Vault   string `mapstructure:"vault"`
	Agent   string `mapstructure:"agent"`
	Builder string `mapstructure:"builder"`
	// BuilderFee is in tenths of a basis point.
	BuilderFee int `mapstructure:"builder_fee"`
}

type RateLimitConfig struct {
	Capacity int     `mapstructure:"capacity"`
	Refill   float64 `mapstructure:"refill"`
}

type BatchConfig struct {
	MaxSize        int           `mapstructure:"max_size"`
	MaxWait        time.Duration `mapstructure:"max_wait"`
	QueueSize      int           `mapstructure:"queue_size"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
	RegistryTTL    time.Duration `mapstructure:"registry_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("network", "mainnet")
	v.SetDefault("base_url", "")
	v.SetDefault("timeout", 10*time.Second)

	v.SetDefault("signer.private_key", "")
	v.SetDefault("signer.keystore_path", "")
	v.SetDefault("signer.passphrase", "")

	v.SetDefault("account.address", "")
	v.SetDefault("account.vault", "")
	v.SetDefault("account.agent", "")
	v.SetDefault("account.builder", "")
	v.SetDefault("account.builder_fee", 0)

	v.SetDefault("rate_limit.capacity", constants.RATE_LIMIT_MAX_TOKENS)
	v.SetDefault("rate_limit.refill", constants.RATE_LIMIT_REFILL_RATE)

	v.SetDefault("batch.max_size", tracker.DefaultMaxBatchSize)
	v.SetDefault("batch.max_wait", tracker.DefaultMaxWait)
	v.SetDefault("batch.queue_size", tracker.DefaultQueueSize)
	v.SetDefault("batch.resolve_timeout", tracker.DefaultResolveTimeout)
	v.SetDefault("batch.registry_ttl", tracker.DefaultRegistryTTL)
}

// Load reads HL_* environment variables, e.g. HL_NETWORK or
// HL_BATCH_MAX_WAIT. Missing env files are skipped and never override
// variables already set. HL_PRIVATE_KEY is accepted as an alias of
// HL_SIGNER_PRIVATE_KEY. When HL_CONFIG_FILE names a yaml, json or toml
// file it is read underneath the environment.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.BindEnv("signer.private_key", "HL_SIGNER_PRIVATE_KEY", "HL_PRIVATE_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("config_file"); err != nil {
		return nil, err
	}

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the network name and every configured address.
func (c *Config) Validate() error {
	if _, err := c.network(); err != nil {
		return err
	}
	for name, addr := range map[string]string{
		"account.address": c.Account.Address,
		"account.vault":   c.Account.Vault,
		"account.agent":   c.Account.Agent,
		"account.builder": c.Account.Builder,
	} {
		if _, err := parseAddress(addr); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if c.Account.BuilderFee < 0 {
		return fmt.Errorf("config: account.builder_fee must not be negative")
	}
	return nil
}

func (c *Config) network() (constants.Network, error) {
	n, ok := constants.ParseNetwork(c.Network)
	if !ok {
		return n, fmt.Errorf("config: unknown network %q", c.Network)
	}
	return n, nil
}

func (c *Config) apiURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	n, _ := c.network()
	return n.APIURL()
}

func parseAddress(s string) (mo.Option[common.Address], error) {
	if s == "" {
		return mo.None[common.Address](), nil
	}
	if !common.IsHexAddress(s) {
		return mo.None[common.Address](), fmt.Errorf("invalid address %q", s)
	}
	return mo.Some(common.HexToAddress(s)), nil
}

// Logger builds the logger for Env.
func (c *Config) Logger() (*zap.Logger, error) {
	return logging.New(c.Env)
}

// Signer builds the configured backend. A private key wins over a keystore.
func (c *Config) Signer() (signer.Signer, error) {
	switch {
	case c.SignerConfig.PrivateKey != "":
		return signer.NewPrivateKeySignerFromHex(c.SignerConfig.PrivateKey)
	case c.SignerConfig.KeystorePath != "":
		return signer.NewKeystoreSigner(c.SignerConfig.KeystorePath, c.SignerConfig.Passphrase)
	}
	return nil, ErrNoSigner
}

// ExchangeConfig returns the exchange settings for s.
func (c *Config) ExchangeConfig(s signer.Signer, logger *zap.Logger, reg prometheus.Registerer) (exchange.Config, error) {
	if err := c.Validate(); err != nil {
		return exchange.Config{}, err
	}
	network, _ := c.network()

	account, _ := parseAddress(c.Account.Address)
	vault, _ := parseAddress(c.Account.Vault)
	agent, _ := parseAddress(c.Account.Agent)
	builderAddr, _ := parseAddress(c.Account.Builder)

	builder := mo.None[exchange.BuilderInfo]()
	if addr, ok := builderAddr.Get(); ok {
		builder = mo.Some(exchange.BuilderInfo{
			B: strings.ToLower(addr.Hex()),
			F: c.Account.BuilderFee,
		})
	}

	return exchange.Config{
		Network:           network,
		BaseURL:           c.BaseURL,
		Timeout:           c.Timeout,
		Signer:            s,
		AccountAddress:    account,
		VaultAddress:      vault,
		AgentAddress:      agent,
		Builder:           builder,
		RateLimitCapacity: c.RateLimit.Capacity,
		RateLimitRefill:   c.RateLimit.Refill,
		Logger:            logger,
		Registerer:        reg,
	}, nil
}

func (c *Config) TrackerConfig(logger *zap.Logger, reg prometheus.Registerer) tracker.Config {
	return tracker.Config{
		MaxBatchSize:   c.Batch.MaxSize,
		MaxWait:        c.Batch.MaxWait,
		QueueSize:      c.Batch.QueueSize,
		ResolveTimeout: c.Batch.ResolveTimeout,
		RegistryTTL:    c.Batch.RegistryTTL,
		Logger:         logger,
		Registerer:     reg,
	}
}

func (c *Config) WSConfig(logger *zap.Logger) ws.Config {
	return ws.Config{
		BaseURL: c.apiURL(),
		Logger:  logger,
	}
}
