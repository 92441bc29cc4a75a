package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// SignFunc produces a 65 byte r ‖ s ‖ v signature for digest. It is the hook
// for custody services, KMS and hardware wallets.
type SignFunc func(ctx context.Context, digest common.Hash) ([]byte, error)

// RemoteSigner delegates signing to a SignFunc. Every signature it returns
// is checked to recover to the configured address.
type RemoteSigner struct {
	address common.Address
	sign    SignFunc
}

var _ Signer = (*RemoteSigner)(nil)

func NewRemoteSigner(address common.Address, sign SignFunc) *RemoteSigner {
	return &RemoteSigner{address: address, sign: sign}
}

func (r *RemoteSigner) Address() common.Address {
	return r.address
}

func (r *RemoteSigner) Sign(ctx context.Context, digest common.Hash) (Signature, error) {
	raw, err := r.sign(ctx, digest)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Signature{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return Signature{}, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	sig, err := FromBytes(raw)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	signer, err := sig.Recover(digest)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	if signer != r.address {
		return Signature{}, fmt.Errorf(
			"%w: signature recovers to %s, want %s",
			ErrSigningFailed,
			signer.Hex(),
			r.address.Hex(),
		)
	}

	return sig, nil
}
