package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/banky/hyperliquid-exchange/exchange"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/mo"
	"go.uber.org/zap"
)

const testKeyHex = "0123456789012345678901234567890123456789012345678901234567890123"

// unsetEnv clears key for the duration of the test, so godotenv may set it.
func unsetEnv(t *testing.T, key string) {
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HL_NETWORK", "HL_PRIVATE_KEY", "HL_SIGNER_PRIVATE_KEY", "HL_CONFIG_FILE"} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	td.Require(t).CmpNoError(err)

	td.Cmp(t, cfg.Network, "mainnet")
	td.Cmp(t, cfg.Timeout, 10*time.Second)
	td.Cmp(t, cfg.RateLimit, RateLimitConfig{Capacity: 1200, Refill: 20})
	td.Cmp(t, cfg.Batch, BatchConfig{
		MaxSize:        20,
		MaxWait:        50 * time.Millisecond,
		QueueSize:      256,
		ResolveTimeout: 10 * time.Second,
		RegistryTTL:    10 * time.Minute,
	})
	td.Cmp(t, cfg.WSConfig(nil).BaseURL, constants.MAINNET_API_URL)

	_, err = cfg.Signer()
	td.Cmp(t, err, td.ErrorIs(ErrNoSigner))
}

func TestLoadFromEnv(t *testing.T) {
	unsetEnv(t, "HL_CONFIG_FILE")
	t.Setenv("HL_NETWORK", "Testnet")
	t.Setenv("HL_TIMEOUT", "3s")
	t.Setenv("HL_PRIVATE_KEY", testKeyHex)
	t.Setenv("HL_ACCOUNT_VAULT", "0x1719884eb866cb12b2287399b15f7db5e7d775ea")
	t.Setenv("HL_ACCOUNT_BUILDER", "0x8C967E73E7B15087C42A10D344CFF4C96D877F1D")
	t.Setenv("HL_ACCOUNT_BUILDER_FEE", "10")
	t.Setenv("HL_RATE_LIMIT_CAPACITY", "50")
	t.Setenv("HL_BATCH_MAX_WAIT", "25ms")
	t.Setenv("HL_BATCH_MAX_SIZE", "4")

	cfg, err := Load()
	td.Require(t).CmpNoError(err)

	s, err := cfg.Signer()
	td.Require(t).CmpNoError(err)
	key, _ := crypto.HexToECDSA(testKeyHex)
	td.Cmp(t, s.Address(), crypto.PubkeyToAddress(key.PublicKey))

	ec, err := cfg.ExchangeConfig(s, zap.NewNop(), nil)
	td.Require(t).CmpNoError(err)
	td.Cmp(t, ec, td.SStruct(exchange.Config{
		Network:           constants.Testnet,
		Timeout:           3 * time.Second,
		VaultAddress:      mo.Some(common.HexToAddress("0x1719884eb866cb12b2287399b15f7db5e7d775ea")),
		Builder:           mo.Some(exchange.BuilderInfo{B: "0x8c967e73e7b15087c42a10d344cff4c96d877f1d", F: 10}),
		RateLimitCapacity: 50,
		RateLimitRefill:   20,
	}, td.StructFields{
		"Signer": td.NotNil(),
		"Logger": td.NotNil(),
	}))

	tc := cfg.TrackerConfig(nil, nil)
	td.Cmp(t, tc.MaxBatchSize, 4)
	td.Cmp(t, tc.MaxWait, 25*time.Millisecond)

	td.Cmp(t, cfg.WSConfig(nil).BaseURL, constants.TESTNET_API_URL)
}

func TestLoadEnvFile(t *testing.T) {
	unsetEnv(t, "HL_CONFIG_FILE")
	unsetEnv(t, "HL_ACCOUNT_AGENT")
	t.Setenv("HL_NETWORK", "mainnet")

	path := filepath.Join(t.TempDir(), ".env")
	err := os.WriteFile(path, []byte(
		"HL_ACCOUNT_AGENT=0x0D1d9635D0640821d15e323ac8AdADfA9c111414\n"+
			"HL_NETWORK=testnet\n",
	), 0o600)
	td.Require(t).CmpNoError(err)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"), path)
	td.Require(t).CmpNoError(err)

	td.Cmp(t, cfg.Account.Agent, "0x0D1d9635D0640821d15e323ac8AdADfA9c111414")
	td.Cmp(t, cfg.Network, "mainnet", "set variables win over the file")
}

func TestLoadConfigFile(t *testing.T) {
	unsetEnv(t, "HL_NETWORK")
	unsetEnv(t, "HL_BATCH_MAX_SIZE")

	path := filepath.Join(t.TempDir(), "hl.yaml")
	err := os.WriteFile(path, []byte(`
network: testnet
base_url: http://localhost:3001
batch:
  max_size: 8
  queue_size: 16
`), 0o600)
	td.Require(t).CmpNoError(err)

	t.Setenv("HL_CONFIG_FILE", path)
	t.Setenv("HL_BATCH_QUEUE_SIZE", "32")

	cfg, err := Load()
	td.Require(t).CmpNoError(err)

	td.Cmp(t, cfg.Network, "testnet")
	td.Cmp(t, cfg.Batch.MaxSize, 8)
	td.Cmp(t, cfg.Batch.QueueSize, 32, "environment wins over the file")
	td.Cmp(t, cfg.WSConfig(nil).BaseURL, constants.LOCAL_API_URL)

	t.Setenv("HL_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err = Load()
	td.CmpError(t, err)
}

func TestValidate(t *testing.T) {
	td.CmpNoError(t, (&Config{}).Validate())

	td.CmpError(t, (&Config{Network: "devnet"}).Validate())
	td.CmpError(t, (&Config{Account: AccountConfig{Vault: "0x1234"}}).Validate())
	td.CmpError(t, (&Config{Account: AccountConfig{BuilderFee: -1}}).Validate())

	_, err := (&Config{Account: AccountConfig{Agent: "agent"}}).ExchangeConfig(nil, nil, nil)
	td.Cmp(t, err, td.Contains("account.agent"))
}
