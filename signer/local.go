package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeySigner signs in process with a secp256k1 key.
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ Signer = (*PrivateKeySigner)(nil)

func NewPrivateKeySigner(key *ecdsa.PrivateKey) (*PrivateKeySigner, error) {
	if key == nil {
		return nil, errors.New("private key is required")
	}
	return &PrivateKeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// NewPrivateKeySignerFromHex accepts the key with or without 0x.
func NewPrivateKeySignerFromHex(hexKey string) (*PrivateKeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewPrivateKeySigner(key)
}

func (p *PrivateKeySigner) Address() common.Address {
	return p.address
}

func (p *PrivateKeySigner) Sign(ctx context.Context, digest common.Hash) (Signature, error) {
	if err := ctx.Err(); err != nil {
		return Signature{}, err
	}

	sig, err := crypto.Sign(digest.Bytes(), p.key)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	return FromBytes(sig)
}

// NewKeystoreSigner decrypts a v3 keystore file and signs with the key it
// holds.
func NewKeystoreSigner(path, passphrase string) (*PrivateKeySigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore %s: %w", path, err)
	}
	return NewKeystoreSignerFromJSON(data, passphrase)
}

func NewKeystoreSignerFromJSON(data []byte, passphrase string) (*PrivateKeySigner, error) {
	key, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return NewPrivateKeySigner(key.PrivateKey)
}
