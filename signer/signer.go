// Package signer turns 32 byte digests into recoverable secp256k1 signatures.
// Backends are interchangeable behind the Signer interface.
package signer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrSigningFailed means the backend refused or failed to sign.
	ErrSigningFailed = errors.New("signing failed")
	// ErrUnavailable means the backend could not be reached.
	ErrUnavailable = errors.New("signer unavailable")
)

// Signer is the signing capability used by the exchange client.
type Signer interface {
	// Sign signs digest. Remote backends may block on ctx.
	Sign(ctx context.Context, digest common.Hash) (Signature, error)
	// Address is the account the signatures recover to.
	Address() common.Address
}

// Signature is an Ethereum style signature with V in {27, 28}.
type Signature struct {
	R common.Hash
	S common.Hash
	V byte
}

// FromBytes parses a 65 byte r ‖ s ‖ v signature. V of 0 or 1 is
// normalised to 27 or 28.
func FromBytes(sig []byte) (Signature, error) {
	var out Signature
	if len(sig) != crypto.SignatureLength {
		return out, fmt.Errorf("invalid signature length: %d", len(sig))
	}

	copy(out.R[:], sig[:32])
	copy(out.S[:], sig[32:64])
	v := sig[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return out, fmt.Errorf("invalid recovery id: %d", sig[64])
	}
	out.V = v

	return out, nil
}

// FromHex parses the 130 hex digit form, with or without 0x.
func FromHex(s string) (Signature, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature hex: %w", err)
	}
	return FromBytes(b)
}

// Bytes returns r ‖ s ‖ v.
func (s Signature) Bytes() []byte {
	out := make([]byte, 0, crypto.SignatureLength)
	out = append(out, s.R.Bytes()...)
	out = append(out, s.S.Bytes()...)
	return append(out, s.V)
}

// Hex is r, s and v as 64, 64 and 2 lower case hex digits.
func (s Signature) Hex() string {
	return fmt.Sprintf("%064x%064x%02x", s.R[:], s.S[:], s.V)
}

func (s Signature) String() string {
	return s.Hex()
}

func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Hex())
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromHex(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Recover returns the address that produced s over digest.
func (s Signature) Recover(digest common.Hash) (common.Address, error) {
	sig := s.Bytes()
	sig[64] -= 27

	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
