package exchange

import (
	"context"
	"fmt"

	"github.com/banky/hyperliquid-exchange/internal/utils"
	"github.com/banky/hyperliquid-exchange/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

/*//////////////////////////////////////////////////////////////
                        LEVERAGE / MARGIN
//////////////////////////////////////////////////////////////*/

// UpdateLeverage updates the leverage for an asset
func (e *Exchange) UpdateLeverage(
	ctx context.Context,
	leverage int,
	coin string,
	isCross bool,
) (*Response, error) {
	asset, err := e.resolveAsset(coin)
	if err != nil {
		return nil, err
	}

	return e.submit(ctx, UpdateLeverageAction{
		Asset:    asset,
		IsCross:  isCross,
		Leverage: leverage,
	})
}

// UpdateIsolatedMargin adds (or, when negative, removes) amount USD of
// margin to the isolated position in coin.
func (e *Exchange) UpdateIsolatedMargin(
	ctx context.Context,
	amount float64,
	coin string,
) (*Response, error) {
	asset, err := e.resolveAsset(coin)
	if err != nil {
		return nil, err
	}
	ntli, err := utils.FloatToUsdInt(amount)
	if err != nil {
		return nil, invalidRequest("updateIsolatedMargin: %v", err)
	}

	return e.submit(ctx, UpdateIsolatedMarginAction{
		Asset: asset,
		IsBuy: true,
		Ntli:  ntli,
	})
}

// ScheduleCancel sets or, without WithScheduleCancelTime, clears the time
// at which all open orders are cancelled.
func (e *Exchange) ScheduleCancel(ctx context.Context, opts ...ScheduleCancelOption) (*Response, error) {
	var cfg scheduleCancelConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var action ScheduleCancelAction
	if t, ok := cfg.time.Get(); ok {
		ms := uint64(t.UnixMilli())
		action.Time = &ms
	}
	return e.submit(ctx, action)
}

func (e *Exchange) SetReferrer(ctx context.Context, code string) (*Response, error) {
	return e.submit(ctx, SetReferrerAction{Code: code})
}

/*//////////////////////////////////////////////////////////////
                      SUB-ACCOUNTS / VAULTS
//////////////////////////////////////////////////////////////*/

func (e *Exchange) CreateSubAccount(ctx context.Context, name string) (*Response, error) {
	return e.submit(ctx, CreateSubAccountAction{Name: name})
}

// SubAccountTransfer moves usd (in micro USD) into or out of a sub-account.
func (e *Exchange) SubAccountTransfer(
	ctx context.Context,
	subAccount common.Address,
	isDeposit bool,
	usd int64,
) (*Response, error) {
	return e.submit(ctx, SubAccountTransferAction{
		SubAccountUser: addressToWire(subAccount),
		IsDeposit:      isDeposit,
		Usd:            usd,
	})
}

// VaultTransfer deposits into or withdraws from a vault; usd is in micro USD.
func (e *Exchange) VaultTransfer(
	ctx context.Context,
	vault common.Address,
	isDeposit bool,
	usd int64,
) (*Response, error) {
	return e.submit(ctx, VaultTransferAction{
		VaultAddress: addressToWire(vault),
		IsDeposit:    isDeposit,
		Usd:          usd,
	})
}

/*//////////////////////////////////////////////////////////////
                           TRANSFERS
//////////////////////////////////////////////////////////////*/

// UsdClassTransfer moves USDC between the spot and perp wallets. When a
// vault is configured the transfer applies to it as a sub-account.
func (e *Exchange) UsdClassTransfer(ctx context.Context, amount float64, toPerp bool) (*Response, error) {
	str, err := utils.FloatToWire(amount)
	if err != nil {
		return nil, invalidRequest("usdClassTransfer: %v", err)
	}
	if v, ok := e.defaults.Vault.Get(); ok {
		str += " subaccount:" + addressToWire(v)
	}
	return e.submit(ctx, UsdClassTransferAction{Amount: str, ToPerp: toPerp})
}

// SpotClassTransfer is the L1 variant of UsdClassTransfer; usdc is in USD.
func (e *Exchange) SpotClassTransfer(ctx context.Context, usdc float64, toPerp bool) (*Response, error) {
	micros, err := utils.FloatToUsdInt(usdc)
	if err != nil {
		return nil, invalidRequest("spotUser: %v", err)
	}
	return e.submit(ctx, SpotUserAction{ClassTransfer: ClassTransfer{Usdc: micros, ToPerp: toPerp}})
}

func (e *Exchange) UsdSend(ctx context.Context, destination common.Address, amount float64) (*Response, error) {
	str, err := utils.FloatToWire(amount)
	if err != nil {
		return nil, invalidRequest("usdSend: %v", err)
	}
	return e.submit(ctx, NewUsdSend(destination, str))
}

// SpotSend sends amount of token, given as "NAME:0x<token id>".
func (e *Exchange) SpotSend(
	ctx context.Context,
	destination common.Address,
	token string,
	amount float64,
) (*Response, error) {
	str, err := utils.FloatToWire(amount)
	if err != nil {
		return nil, invalidRequest("spotSend: %v", err)
	}
	return e.submit(ctx, NewSpotSend(destination, token, str))
}

func (e *Exchange) Withdraw(ctx context.Context, destination common.Address, amount float64) (*Response, error) {
	str, err := utils.FloatToWire(amount)
	if err != nil {
		return nil, invalidRequest("withdraw3: %v", err)
	}
	return e.submit(ctx, NewWithdraw(destination, str))
}

/*//////////////////////////////////////////////////////////////
                       AGENTS / BUILDERS
//////////////////////////////////////////////////////////////*/

// ApproveAgent authorises agent to trade for this account. An empty name
// approves an unnamed agent.
func (e *Exchange) ApproveAgent(ctx context.Context, agent common.Address, name string) (*Response, error) {
	return e.submit(ctx, NewApproveAgent(agent, name))
}

// ApproveNewAgent generates a fresh agent key, approves it and returns a
// signer for it.
func (e *Exchange) ApproveNewAgent(ctx context.Context, name string) (*signer.PrivateKeySigner, *Response, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("generate agent key: %w", err)
	}

	agent, err := signer.NewPrivateKeySigner(key)
	if err != nil {
		return nil, nil, err
	}
	resp, err := e.ApproveAgent(ctx, agent.Address(), name)
	if err != nil {
		return nil, resp, err
	}
	return agent, resp, nil
}

// ApproveBuilderFee allows builder to charge up to maxFeeRate, e.g. "0.001%".
func (e *Exchange) ApproveBuilderFee(ctx context.Context, builder common.Address, maxFeeRate string) (*Response, error) {
	return e.submit(ctx, NewApproveBuilderFee(builder, maxFeeRate))
}

// TokenDelegate stakes (or unstakes) wei of the native token with validator.
func (e *Exchange) TokenDelegate(
	ctx context.Context,
	validator common.Address,
	wei uint64,
	isUndelegate bool,
) (*Response, error) {
	return e.submit(ctx, NewTokenDelegate(validator, wei, isUndelegate))
}
