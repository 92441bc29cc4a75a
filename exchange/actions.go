package exchange

import (
	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/ethereum/go-ethereum/common"
)

// L1 actions. Field order is significant: it is the msgpack map order the
// connection id is computed over.

type OrderAction struct {
	Orders   []OrderWire   `json:"orders" msgpack:"orders"`
	Grouping OrderGrouping `json:"grouping" msgpack:"grouping"`
	Builder  *BuilderInfo  `json:"builder,omitempty" msgpack:"builder,omitempty"`
}

func (OrderAction) ActionType() string { return "order" }
func (a OrderAction) Weight() int      { return max(1, len(a.Orders)) * constants.WEIGHT_ORDER }
func (OrderAction) l1()                {}

func (a OrderAction) validate() error {
	if len(a.Orders) == 0 {
		return invalidRequest("order: at least one order is required")
	}
	switch a.Grouping {
	case GroupingNa, GroupingNormalTpsl, GroupingPositionTpsl:
	default:
		return invalidRequest("order: unknown grouping %q", a.Grouping)
	}
	if a.Builder != nil && !common.IsHexAddress(a.Builder.B) {
		return invalidRequest("order: invalid builder address %q", a.Builder.B)
	}
	return nil
}

type CancelAction struct {
	Cancels []CancelWire `json:"cancels" msgpack:"cancels"`
}

func (CancelAction) ActionType() string { return "cancel" }
func (a CancelAction) Weight() int      { return max(1, len(a.Cancels)) * constants.WEIGHT_CANCEL }
func (CancelAction) l1()                {}

func (a CancelAction) validate() error {
	if len(a.Cancels) == 0 {
		return invalidRequest("cancel: at least one cancel is required")
	}
	return nil
}

type CancelByCloidAction struct {
	Cancels []CancelByCloidWire `json:"cancels" msgpack:"cancels"`
}

func (CancelByCloidAction) ActionType() string { return "cancelByCloid" }
func (a CancelByCloidAction) Weight() int      { return max(1, len(a.Cancels)) * constants.WEIGHT_CANCEL }
func (CancelByCloidAction) l1()                {}

func (a CancelByCloidAction) validate() error {
	if len(a.Cancels) == 0 {
		return invalidRequest("cancelByCloid: at least one cancel is required")
	}
	return nil
}

type BatchModifyAction struct {
	Modifies []ModifyWire `json:"modifies" msgpack:"modifies"`
}

func (BatchModifyAction) ActionType() string { return "batchModify" }
func (a BatchModifyAction) Weight() int      { return max(1, len(a.Modifies)) * constants.WEIGHT_MODIFY }
func (BatchModifyAction) l1()                {}

func (a BatchModifyAction) validate() error {
	if len(a.Modifies) == 0 {
		return invalidRequest("batchModify: at least one modify is required")
	}
	return nil
}

type UpdateLeverageAction struct {
	Asset    int  `json:"asset" msgpack:"asset"`
	IsCross  bool `json:"isCross" msgpack:"isCross"`
	Leverage int  `json:"leverage" msgpack:"leverage"`
}

func (UpdateLeverageAction) ActionType() string { return "updateLeverage" }
func (UpdateLeverageAction) Weight() int        { return constants.WEIGHT_DEFAULT }
func (UpdateLeverageAction) l1()                {}

func (a UpdateLeverageAction) validate() error {
	if a.Leverage <= 0 {
		return invalidRequest("updateLeverage: leverage must be positive, got %d", a.Leverage)
	}
	return nil
}

type UpdateIsolatedMarginAction struct {
	Asset int  `json:"asset" msgpack:"asset"`
	IsBuy bool `json:"isBuy" msgpack:"isBuy"`
	// Ntli is the margin delta in micro USD; negative removes margin.
	Ntli int64 `json:"ntli" msgpack:"ntli"`
}

func (UpdateIsolatedMarginAction) ActionType() string { return "updateIsolatedMargin" }
func (UpdateIsolatedMarginAction) Weight() int        { return constants.WEIGHT_DEFAULT }
func (UpdateIsolatedMarginAction) l1()                {}

// ScheduleCancelAction arms (Time set) or clears (Time nil) the dead man's
// switch.
type ScheduleCancelAction struct {
	Time *uint64 `json:"time,omitempty" msgpack:"time,omitempty"`
}

func (ScheduleCancelAction) ActionType() string { return "scheduleCancel" }
func (ScheduleCancelAction) Weight() int        { return constants.WEIGHT_DEFAULT }
func (ScheduleCancelAction) l1()                {}

type SetReferrerAction struct {
	Code string `json:"code" msgpack:"code"`
}

func (SetReferrerAction) ActionType() string { return "setReferrer" }
func (SetReferrerAction) Weight() int        { return constants.WEIGHT_DEFAULT }
func (SetReferrerAction) l1()                {}

func (a SetReferrerAction) validate() error {
	if a.Code == "" {
		return invalidRequest("setReferrer: code is required")
	}
	return nil
}

type CreateSubAccountAction struct {
	Name string `json:"name" msgpack:"name"`
}

func (CreateSubAccountAction) ActionType() string { return "createSubAccount" }
func (CreateSubAccountAction) Weight() int        { return constants.WEIGHT_DEFAULT }
func (CreateSubAccountAction) l1()                {}

func (a CreateSubAccountAction) validate() error {
	if a.Name == "" {
		return invalidRequest("createSubAccount: name is required")
	}
	return nil
}

type SubAccountTransferAction struct {
	SubAccountUser string `json:"subAccountUser" msgpack:"subAccountUser"`
	IsDeposit      bool   `json:"isDeposit" msgpack:"isDeposit"`
	// Usd is in micro USD.
	Usd int64 `json:"usd" msgpack:"usd"`
}

func (SubAccountTransferAction) ActionType() string { return "subAccountTransfer" }
func (SubAccountTransferAction) Weight() int        { return constants.WEIGHT_TRANSFER }
func (SubAccountTransferAction) l1()                {}

func (a SubAccountTransferAction) validate() error {
	if !common.IsHexAddress(a.SubAccountUser) {
		return invalidRequest("subAccountTransfer: invalid sub-account %q", a.SubAccountUser)
	}
	if a.Usd <= 0 {
		return invalidRequest("subAccountTransfer: usd must be positive, got %d", a.Usd)
	}
	return nil
}

type VaultTransferAction struct {
	VaultAddress string `json:"vaultAddress" msgpack:"vaultAddress"`
	IsDeposit    bool   `json:"isDeposit" msgpack:"isDeposit"`
	// Usd is in micro USD.
	Usd int64 `json:"usd" msgpack:"usd"`
}

func (VaultTransferAction) ActionType() string { return "vaultTransfer" }
func (VaultTransferAction) Weight() int        { return constants.WEIGHT_TRANSFER }
func (VaultTransferAction) l1()                {}

func (a VaultTransferAction) validate() error {
	if !common.IsHexAddress(a.VaultAddress) {
		return invalidRequest("vaultTransfer: invalid vault %q", a.VaultAddress)
	}
	if a.Usd <= 0 {
		return invalidRequest("vaultTransfer: usd must be positive, got %d", a.Usd)
	}
	return nil
}

// SpotUserAction moves USDC between the spot and perp wallets. It is the
// L1 form of UsdClassTransferAction.
type SpotUserAction struct {
	ClassTransfer ClassTransfer `json:"classTransfer" msgpack:"classTransfer"`
}

type ClassTransfer struct {
	// Usdc is in micro USD.
	Usdc   int64 `json:"usdc" msgpack:"usdc"`
	ToPerp bool  `json:"toPerp" msgpack:"toPerp"`
}

func (SpotUserAction) ActionType() string { return "spotUser" }
func (SpotUserAction) Weight() int        { return constants.WEIGHT_TRANSFER }
func (SpotUserAction) l1()                {}

func (a SpotUserAction) validate() error {
	if a.ClassTransfer.Usdc <= 0 {
		return invalidRequest("spotUser: usdc must be positive, got %d", a.ClassTransfer.Usdc)
	}
	return nil
}
