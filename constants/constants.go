package constants

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const MAINNET_API_URL = "https://api.hyperliquid.xyz"
const TESTNET_API_URL = "https://api.hyperliquid-testnet.xyz"
const LOCAL_API_URL = "http://localhost:3001"

// Chain ids of the user-signed transaction domain.
const MAINNET_CHAIN_ID = 42161
const TESTNET_CHAIN_ID = 421614

// The exchange (agent) domain uses one chain id on every network.
const EXCHANGE_CHAIN_ID = 1337

const EXCHANGE_DOMAIN_NAME = "Exchange"
const TRANSACTION_DOMAIN_NAME = "HyperliquidSignTransaction"
const DOMAIN_VERSION = "1"

// TRANSACTION_TYPE_PREFIX is prepended to the type string of every
// user-signed action before hashing.
const TRANSACTION_TYPE_PREFIX = "HyperliquidTransaction:"

// Spot asset ids start here; perp asset ids are their index in the universe.
const SPOT_ASSET_OFFSET = 10000

// Rate limiting. Weights are per element of a bulk action.
const (
	RATE_LIMIT_MAX_TOKENS  = 1200
	RATE_LIMIT_REFILL_RATE = 20

	WEIGHT_ORDER    = 1
	WEIGHT_CANCEL   = 1
	WEIGHT_MODIFY   = 1
	WEIGHT_TRANSFER = 5
	WEIGHT_DEFAULT  = 1
)

var ZERO_ADDRESS = common.Address{}

// Network selects endpoints, domain chain ids and the agent source tag.
type Network int

const (
	Mainnet Network = iota
	Testnet
)

func (n Network) IsMainnet() bool {
	return n == Mainnet
}

// APIURL returns the REST base url. The websocket url is derived from it.
func (n Network) APIURL() string {
	if n.IsMainnet() {
		return MAINNET_API_URL
	}
	return TESTNET_API_URL
}

// ChainID returns the transaction-domain chain id.
func (n Network) ChainID() uint64 {
	if n.IsMainnet() {
		return MAINNET_CHAIN_ID
	}
	return TESTNET_CHAIN_ID
}

// HyperliquidChain is the value of the hyperliquidChain field of user-signed
// actions.
func (n Network) HyperliquidChain() string {
	if n.IsMainnet() {
		return "Mainnet"
	}
	return "Testnet"
}

// AgentSource is the phantom agent source: "a" on mainnet, "b" elsewhere.
func (n Network) AgentSource() string {
	if n.IsMainnet() {
		return "a"
	}
	return "b"
}

func (n Network) String() string {
	return n.HyperliquidChain()
}

// ParseNetwork accepts "mainnet" or "testnet" in any case. Empty means
// mainnet.
func ParseNetwork(s string) (Network, bool) {
	switch strings.ToLower(s) {
	case "mainnet", "":
		return Mainnet, true
	case "testnet":
		return Testnet, true
	}
	return Mainnet, false
}
