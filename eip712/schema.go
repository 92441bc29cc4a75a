// Package eip712 hashes the fixed set of exchange messages the way an EIP-712
// verifier recomputes them. Only the field types those messages use are
// supported.
package eip712

import (
	"strings"
	"sync"

	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type FieldType string

const (
	String  FieldType = "string"
	Address FieldType = "address"
	Uint64  FieldType = "uint64"
	Uint256 FieldType = "uint256"
	Bool    FieldType = "bool"
	Bytes32 FieldType = "bytes32"
)

// Field is one member of a type string, in declaration order.
type Field struct {
	Name string
	Type FieldType
}

// Schema is the static description of a signable struct. Prefixed schemas
// belong to the user-signed transaction domain and hash their type string
// behind constants.TRANSACTION_TYPE_PREFIX.
type Schema struct {
	PrimaryType string
	Fields      []Field
	Prefixed    bool
}

// Message is implemented by every signable action. FieldValues must return
// one value per schema field, in the schema's order.
type Message interface {
	Schema() Schema
	FieldValues() []any
}

// TypeString renders "Name(type1 name1,type2 name2)".
func (s Schema) TypeString() string {
	var b strings.Builder
	b.WriteString(s.PrimaryType)
	b.WriteByte('(')
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(f.Type))
		b.WriteByte(' ')
		b.WriteString(f.Name)
	}
	b.WriteByte(')')
	return b.String()
}

// EncodeType is the string actually hashed into the type hash.
func (s Schema) EncodeType() string {
	if s.Prefixed {
		return constants.TRANSACTION_TYPE_PREFIX + s.TypeString()
	}
	return s.TypeString()
}

var typeHashes sync.Map // encoded type string -> common.Hash

// TypeHash is keccak256 of the encoded type string. It depends only on the
// schema, so results are cached.
func TypeHash(s Schema) common.Hash {
	key := s.EncodeType()
	if h, ok := typeHashes.Load(key); ok {
		return h.(common.Hash)
	}
	h := crypto.Keccak256Hash([]byte(key))
	typeHashes.Store(key, h)
	return h
}
