package exchange

import (
	"fmt"
	"strings"

	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/banky/hyperliquid-exchange/eip712"
	"github.com/ethereum/go-ethereum/common"
)

// User-signed actions are hashed as their own eip712 struct under the
// transaction domain. HyperliquidChain, SignatureChainID and the time or
// nonce field are stamped at dispatch; callers leave them empty.

var (
	usdSendSchema = eip712.Schema{
		PrimaryType: "UsdSend",
		Prefixed:    true,
		Fields: []eip712.Field{
			{Name: "hyperliquidChain", Type: eip712.String},
			{Name: "destination", Type: eip712.String},
			{Name: "amount", Type: eip712.String},
			{Name: "time", Type: eip712.Uint64},
		},
	}

	spotSendSchema = eip712.Schema{
		PrimaryType: "SpotSend",
		Prefixed:    true,
		Fields: []eip712.Field{
			{Name: "hyperliquidChain", Type: eip712.String},
			{Name: "destination", Type: eip712.String},
			{Name: "token", Type: eip712.String},
			{Name: "amount", Type: eip712.String},
			{Name: "time", Type: eip712.Uint64},
		},
	}

	withdrawSchema = eip712.Schema{
		PrimaryType: "Withdraw",
		Prefixed:    true,
		Fields: []eip712.Field{
			{Name: "hyperliquidChain", Type: eip712.String},
			{Name: "destination", Type: eip712.String},
			{Name: "amount", Type: eip712.String},
			{Name: "time", Type: eip712.Uint64},
		},
	}

	usdClassTransferSchema = eip712.Schema{
		PrimaryType: "UsdClassTransfer",
		Prefixed:    true,
		Fields: []eip712.Field{
			{Name: "hyperliquidChain", Type: eip712.String},
			{Name: "amount", Type: eip712.String},
			{Name: "toPerp", Type: eip712.Bool},
			{Name: "nonce", Type: eip712.Uint64},
		},
	}

	approveAgentSchema = eip712.Schema{
		PrimaryType: "ApproveAgent",
		Prefixed:    true,
		Fields: []eip712.Field{
			{Name: "hyperliquidChain", Type: eip712.String},
			{Name: "agentAddress", Type: eip712.Address},
			{Name: "agentName", Type: eip712.String},
			{Name: "nonce", Type: eip712.Uint64},
		},
	}

	approveBuilderFeeSchema = eip712.Schema{
		PrimaryType: "ApproveBuilderFee",
		Prefixed:    true,
		Fields: []eip712.Field{
			{Name: "hyperliquidChain", Type: eip712.String},
			{Name: "maxFeeRate", Type: eip712.String},
			{Name: "builder", Type: eip712.String},
			{Name: "nonce", Type: eip712.Uint64},
		},
	}

	tokenDelegateSchema = eip712.Schema{
		PrimaryType: "TokenDelegate",
		Prefixed:    true,
		Fields: []eip712.Field{
			{Name: "hyperliquidChain", Type: eip712.String},
			{Name: "validator", Type: eip712.Address},
			{Name: "wei", Type: eip712.Uint64},
			{Name: "isUndelegate", Type: eip712.Bool},
			{Name: "nonce", Type: eip712.Uint64},
		},
	}
)

// signatureChainID renders the transaction domain chain id the way the
// exchange expects it, e.g. "0x66eee".
func signatureChainID(network constants.Network) string {
	return fmt.Sprintf("0x%x", network.ChainID())
}

func validAmount(kind, amount string) error {
	if strings.TrimSpace(amount) == "" {
		return invalidRequest("%s: amount is required", kind)
	}
	return nil
}

/*//////////////////////////////////////////////////////////////
                            USD SEND
//////////////////////////////////////////////////////////////*/

type UsdSendAction struct {
	HyperliquidChain string `json:"hyperliquidChain"`
	SignatureChainID string `json:"signatureChainId"`
	Destination      string `json:"destination"`
	Amount           string `json:"amount"`
	Time             uint64 `json:"time"`
}

// NewUsdSend sends amount USDC of the perp balance to destination.
func NewUsdSend(destination common.Address, amount string) UsdSendAction {
	return UsdSendAction{Destination: addressToWire(destination), Amount: amount}
}

func (UsdSendAction) ActionType() string    { return "usdSend" }
func (UsdSendAction) Weight() int           { return constants.WEIGHT_TRANSFER }
func (UsdSendAction) Schema() eip712.Schema { return usdSendSchema }

func (a UsdSendAction) FieldValues() []any {
	return []any{a.HyperliquidChain, a.Destination, a.Amount, a.Time}
}

func (a UsdSendAction) withEnvelope(network constants.Network, nonce uint64) UserSignedAction {
	a.HyperliquidChain = network.HyperliquidChain()
	a.SignatureChainID = signatureChainID(network)
	a.Time = nonce
	return a
}

func (a UsdSendAction) validate() error {
	if !common.IsHexAddress(a.Destination) {
		return invalidRequest("usdSend: invalid destination %q", a.Destination)
	}
	return validAmount("usdSend", a.Amount)
}

/*//////////////////////////////////////////////////////////////
                            SPOT SEND
//////////////////////////////////////////////////////////////*/

type SpotSendAction struct {
	HyperliquidChain string `json:"hyperliquidChain"`
	SignatureChainID string `json:"signatureChainId"`
	Destination      string `json:"destination"`
	// Token is "NAME:0x<token id>".
	Token  string `json:"token"`
	Amount string `json:"amount"`
	Time   uint64 `json:"time"`
}

func NewSpotSend(destination common.Address, token, amount string) SpotSendAction {
	return SpotSendAction{Destination: addressToWire(destination), Token: token, Amount: amount}
}

func (SpotSendAction) ActionType() string    { return "spotSend" }
func (SpotSendAction) Weight() int           { return constants.WEIGHT_TRANSFER }
func (SpotSendAction) Schema() eip712.Schema { return spotSendSchema }

func (a SpotSendAction) FieldValues() []any {
	return []any{a.HyperliquidChain, a.Destination, a.Token, a.Amount, a.Time}
}

func (a SpotSendAction) withEnvelope(network constants.Network, nonce uint64) UserSignedAction {
	a.HyperliquidChain = network.HyperliquidChain()
	a.SignatureChainID = signatureChainID(network)
	a.Time = nonce
	return a
}

func (a SpotSendAction) validate() error {
	if !common.IsHexAddress(a.Destination) {
		return invalidRequest("spotSend: invalid destination %q", a.Destination)
	}
	if a.Token == "" {
		return invalidRequest("spotSend: token is required")
	}
	return validAmount("spotSend", a.Amount)
}

/*//////////////////////////////////////////////////////////////
                            WITHDRAW
//////////////////////////////////////////////////////////////*/

type WithdrawAction struct {
	HyperliquidChain string `json:"hyperliquidChain"`
	SignatureChainID string `json:"signatureChainId"`
	Destination      string `json:"destination"`
	Amount           string `json:"amount"`
	Time             uint64 `json:"time"`
}

// NewWithdraw withdraws amount USDC to destination through the bridge.
func NewWithdraw(destination common.Address, amount string) WithdrawAction {
	return WithdrawAction{Destination: addressToWire(destination), Amount: amount}
}

func (WithdrawAction) ActionType() string    { return "withdraw3" }
func (WithdrawAction) Weight() int           { return constants.WEIGHT_TRANSFER }
func (WithdrawAction) Schema() eip712.Schema { return withdrawSchema }

func (a WithdrawAction) FieldValues() []any {
	return []any{a.HyperliquidChain, a.Destination, a.Amount, a.Time}
}

func (a WithdrawAction) withEnvelope(network constants.Network, nonce uint64) UserSignedAction {
	a.HyperliquidChain = network.HyperliquidChain()
	a.SignatureChainID = signatureChainID(network)
	a.Time = nonce
	return a
}

func (a WithdrawAction) validate() error {
	if !common.IsHexAddress(a.Destination) {
		return invalidRequest("withdraw3: invalid destination %q", a.Destination)
	}
	return validAmount("withdraw3", a.Amount)
}

/*//////////////////////////////////////////////////////////////
                       USD CLASS TRANSFER
//////////////////////////////////////////////////////////////*/

type UsdClassTransferAction struct {
	HyperliquidChain string `json:"hyperliquidChain"`
	SignatureChainID string `json:"signatureChainId"`
	Amount           string `json:"amount"`
	ToPerp           bool   `json:"toPerp"`
	Nonce            uint64 `json:"nonce"`
}

func (UsdClassTransferAction) ActionType() string    { return "usdClassTransfer" }
func (UsdClassTransferAction) Weight() int           { return constants.WEIGHT_TRANSFER }
func (UsdClassTransferAction) Schema() eip712.Schema { return usdClassTransferSchema }

func (a UsdClassTransferAction) FieldValues() []any {
	return []any{a.HyperliquidChain, a.Amount, a.ToPerp, a.Nonce}
}

func (a UsdClassTransferAction) withEnvelope(network constants.Network, nonce uint64) UserSignedAction {
	a.HyperliquidChain = network.HyperliquidChain()
	a.SignatureChainID = signatureChainID(network)
	a.Nonce = nonce
	return a
}

func (a UsdClassTransferAction) validate() error {
	return validAmount("usdClassTransfer", a.Amount)
}

/*//////////////////////////////////////////////////////////////
                          APPROVE AGENT
//////////////////////////////////////////////////////////////*/

type ApproveAgentAction struct {
	HyperliquidChain string `json:"hyperliquidChain"`
	SignatureChainID string `json:"signatureChainId"`
	AgentAddress     string `json:"agentAddress"`
	// AgentName is signed as "" when unset and then left off the wire.
	AgentName string `json:"agentName,omitempty"`
	Nonce     uint64 `json:"nonce"`
}

func NewApproveAgent(agent common.Address, name string) ApproveAgentAction {
	return ApproveAgentAction{AgentAddress: addressToWire(agent), AgentName: name}
}

func (ApproveAgentAction) ActionType() string    { return "approveAgent" }
func (ApproveAgentAction) Weight() int           { return constants.WEIGHT_DEFAULT }
func (ApproveAgentAction) Schema() eip712.Schema { return approveAgentSchema }

func (a ApproveAgentAction) FieldValues() []any {
	return []any{a.HyperliquidChain, a.AgentAddress, a.AgentName, a.Nonce}
}

func (a ApproveAgentAction) withEnvelope(network constants.Network, nonce uint64) UserSignedAction {
	a.HyperliquidChain = network.HyperliquidChain()
	a.SignatureChainID = signatureChainID(network)
	a.Nonce = nonce
	return a
}

func (a ApproveAgentAction) validate() error {
	if !common.IsHexAddress(a.AgentAddress) {
		return invalidRequest("approveAgent: invalid agent address %q", a.AgentAddress)
	}
	return nil
}

/*//////////////////////////////////////////////////////////////
                       APPROVE BUILDER FEE
//////////////////////////////////////////////////////////////*/

type ApproveBuilderFeeAction struct {
	HyperliquidChain string `json:"hyperliquidChain"`
	SignatureChainID string `json:"signatureChainId"`
	// MaxFeeRate is a percentage string such as "0.001%".
	MaxFeeRate string `json:"maxFeeRate"`
	Builder    string `json:"builder"`
	Nonce      uint64 `json:"nonce"`
}

func NewApproveBuilderFee(builder common.Address, maxFeeRate string) ApproveBuilderFeeAction {
	return ApproveBuilderFeeAction{Builder: addressToWire(builder), MaxFeeRate: maxFeeRate}
}

func (ApproveBuilderFeeAction) ActionType() string    { return "approveBuilderFee" }
func (ApproveBuilderFeeAction) Weight() int           { return constants.WEIGHT_DEFAULT }
func (ApproveBuilderFeeAction) Schema() eip712.Schema { return approveBuilderFeeSchema }

func (a ApproveBuilderFeeAction) FieldValues() []any {
	return []any{a.HyperliquidChain, a.MaxFeeRate, a.Builder, a.Nonce}
}

func (a ApproveBuilderFeeAction) withEnvelope(network constants.Network, nonce uint64) UserSignedAction {
	a.HyperliquidChain = network.HyperliquidChain()
	a.SignatureChainID = signatureChainID(network)
	a.Nonce = nonce
	return a
}

func (a ApproveBuilderFeeAction) validate() error {
	if !common.IsHexAddress(a.Builder) {
		return invalidRequest("approveBuilderFee: invalid builder %q", a.Builder)
	}
	if !strings.HasSuffix(a.MaxFeeRate, "%") {
		return invalidRequest("approveBuilderFee: max fee rate must be a percentage, got %q", a.MaxFeeRate)
	}
	return nil
}

/*//////////////////////////////////////////////////////////////
                         TOKEN DELEGATE
//////////////////////////////////////////////////////////////*/

type TokenDelegateAction struct {
	HyperliquidChain string `json:"hyperliquidChain"`
	SignatureChainID string `json:"signatureChainId"`
	Validator        string `json:"validator"`
	Wei              uint64 `json:"wei"`
	IsUndelegate     bool   `json:"isUndelegate"`
	Nonce            uint64 `json:"nonce"`
}

func NewTokenDelegate(validator common.Address, wei uint64, isUndelegate bool) TokenDelegateAction {
	return TokenDelegateAction{
		Validator:    addressToWire(validator),
		Wei:          wei,
		IsUndelegate: isUndelegate,
	}
}

func (TokenDelegateAction) ActionType() string    { return "tokenDelegate" }
func (TokenDelegateAction) Weight() int           { return constants.WEIGHT_DEFAULT }
func (TokenDelegateAction) Schema() eip712.Schema { return tokenDelegateSchema }

func (a TokenDelegateAction) FieldValues() []any {
	return []any{a.HyperliquidChain, a.Validator, a.Wei, a.IsUndelegate, a.Nonce}
}

func (a TokenDelegateAction) withEnvelope(network constants.Network, nonce uint64) UserSignedAction {
	a.HyperliquidChain = network.HyperliquidChain()
	a.SignatureChainID = signatureChainID(network)
	a.Nonce = nonce
	return a
}

func (a TokenDelegateAction) validate() error {
	if !common.IsHexAddress(a.Validator) {
		return invalidRequest("tokenDelegate: invalid validator %q", a.Validator)
	}
	if a.Wei == 0 {
		return invalidRequest("tokenDelegate: wei must be positive")
	}
	return nil
}
