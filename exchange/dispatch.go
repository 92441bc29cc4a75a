package exchange

import (
	"context"
	"time"

	"github.com/banky/hyperliquid-exchange/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/mo"
	"go.uber.org/zap"
)

const exchangePath = "/exchange"

// payload is the body posted to /exchange.
type payload struct {
	Action       any              `json:"action"`
	Signature    signer.Signature `json:"signature"`
	Nonce        uint64           `json:"nonce"`
	VaultAddress *string          `json:"vaultAddress"`
	ExpiresAfter *uint64          `json:"expiresAfter,omitempty"`
}

// Dispatch validates, admits, signs and posts one action, making exactly one
// HTTP attempt. It returns the decoded envelope unchanged, including an
// "err" status; use Response.Err to turn that into a *RejectedError.
//
// Errors before the network call (*InvalidRequestError,
// *admission.RateLimitedError, *SigningError) mean nothing was sent. After
// it (*TransportError, *HTTPError, *InvalidResponseError) the outcome on the
// exchange is unknown and the nonce is spent: a retry must dispatch again,
// never resend.
func (e *Exchange) Dispatch(
	ctx context.Context,
	action Action,
	opts DispatchOptions,
) (*Response, error) {
	start := time.Now()
	resp, err := e.dispatch(ctx, action, opts.merge(e.defaults))
	e.metrics.observe(action.ActionType(), start, err)
	return resp, err
}

func (e *Exchange) dispatch(
	ctx context.Context,
	action Action,
	opts DispatchOptions,
) (*Response, error) {
	action = attachBuilder(action, opts.Builder)

	if v, ok := action.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}

	nonce, err := e.admission.Admit(action.Weight())
	if err != nil {
		e.logger.Warn("action not admitted",
			zap.String("type", action.ActionType()),
			zap.Int("weight", action.Weight()),
			zap.Error(err),
		)
		return nil, err
	}

	// User-signed actions are never sent for a vault and carry no expiry.
	vault := opts.Vault
	expiresAfter := e.currentExpiry()
	if us, ok := action.(UserSignedAction); ok {
		action = us.withEnvelope(e.network, nonce)
		vault = mo.None[common.Address]()
		expiresAfter = mo.None[uint64]()
	}

	digest, err := signingDigest(action, e.network, nonce, vault, expiresAfter)
	if err != nil {
		return nil, &SigningError{Err: err}
	}

	sig, err := e.signer.Sign(ctx, digest)
	if err != nil {
		return nil, &SigningError{Err: err}
	}

	var wire Action = action
	if agent, ok := opts.Agent.Get(); ok {
		wire = wrapForAgent(action, agent, e.network)
	}

	body := payload{
		Action:    tagged{action: wire},
		Signature: sig,
		Nonce:     nonce,
	}
	if v, ok := vault.Get(); ok {
		addr := addressToWire(v)
		body.VaultAddress = &addr
	}
	if exp, ok := expiresAfter.Get(); ok {
		body.ExpiresAfter = &exp
	}

	logger := e.logger.With(
		zap.String("type", action.ActionType()),
		zap.Uint64("nonce", nonce),
	)
	logger.Debug("posting action")

	var resp Response
	if err := e.rest.Post(ctx, exchangePath, body, &resp); err != nil {
		err = classifyPostError(err)
		logger.Warn("post failed", zap.Error(err))
		return nil, err
	}

	if resp.Status == "err" {
		logger.Info("action rejected", zap.String("reason", resp.ErrorMessage))
	} else {
		logger.Debug("action accepted", zap.String("response_type", resp.Type))
	}
	return &resp, nil
}

// attachBuilder adds the builder fee to order actions that do not set one.
func attachBuilder(action Action, builder mo.Option[BuilderInfo]) Action {
	b, ok := builder.Get()
	if !ok {
		return action
	}
	order, ok := action.(OrderAction)
	if !ok || order.Builder != nil {
		return action
	}
	order.Builder = &b
	return order
}
