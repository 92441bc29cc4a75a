package eip712

import (
	"math/big"

	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var domainSchema = Schema{
	PrimaryType: "EIP712Domain",
	Fields: []Field{
		{Name: "name", Type: String},
		{Name: "version", Type: String},
		{Name: "chainId", Type: Uint256},
		{Name: "verifyingContract", Type: Address},
	},
}

// Domain binds a signature to one application and chain.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract common.Address
}

// ExchangeDomain is the domain of phantom agent signatures. It is the same on
// every network.
func ExchangeDomain() Domain {
	return Domain{
		Name:              constants.EXCHANGE_DOMAIN_NAME,
		Version:           constants.DOMAIN_VERSION,
		ChainID:           constants.EXCHANGE_CHAIN_ID,
		VerifyingContract: constants.ZERO_ADDRESS,
	}
}

// TransactionDomain is the domain of user-signed actions on chainID.
func TransactionDomain(chainID uint64) Domain {
	return Domain{
		Name:              constants.TRANSACTION_DOMAIN_NAME,
		Version:           constants.DOMAIN_VERSION,
		ChainID:           chainID,
		VerifyingContract: constants.ZERO_ADDRESS,
	}
}

func (d Domain) Schema() Schema {
	return domainSchema
}

// Separator is the standard EIP-712 domain hash. Unlike message fields,
// verifyingContract is encoded as the address left padded to 32 bytes.
func (d Domain) Separator() common.Hash {
	buf := make([]byte, 0, 32*5)
	buf = append(buf, TypeHash(domainSchema).Bytes()...)
	buf = append(buf, crypto.Keccak256([]byte(d.Name))...)
	buf = append(buf, crypto.Keccak256([]byte(d.Version))...)
	buf = append(buf, common.BigToHash(new(big.Int).SetUint64(d.ChainID)).Bytes()...)
	buf = append(buf, common.BytesToHash(d.VerifyingContract.Bytes()).Bytes()...)
	return crypto.Keccak256Hash(buf)
}
