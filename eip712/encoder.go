package eip712

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrFieldCount = errors.New("field values do not match schema")

// EncodeField encodes one value into its 32 byte slot. A nil value is an
// absent optional and encodes to zero. Addresses are hashed like strings,
// as their lowercase 0x-prefixed hex, which is how they appear on the
// wire.
func EncodeField(t FieldType, v any) (common.Hash, error) {
	if v == nil {
		return common.Hash{}, nil
	}

	switch t {
	case String:
		s, ok := v.(string)
		if !ok {
			return common.Hash{}, fmt.Errorf("string field: unexpected %T", v)
		}
		return crypto.Keccak256Hash([]byte(s)), nil

	case Address:
		var addr common.Address
		switch a := v.(type) {
		case common.Address:
			addr = a
		case string:
			if !common.IsHexAddress(a) {
				return common.Hash{}, fmt.Errorf("address field: invalid address %q", a)
			}
			addr = common.HexToAddress(a)
		default:
			return common.Hash{}, fmt.Errorf("address field: unexpected %T", v)
		}
		return crypto.Keccak256Hash([]byte(strings.ToLower(addr.Hex()))), nil

	case Uint64, Uint256:
		switch n := v.(type) {
		case uint64:
			return common.BigToHash(new(big.Int).SetUint64(n)), nil
		case *big.Int:
			if n.Sign() < 0 || n.BitLen() > 256 {
				return common.Hash{}, fmt.Errorf("%s field: %s out of range", t, n)
			}
			return common.BigToHash(n), nil
		}
		return common.Hash{}, fmt.Errorf("%s field: unexpected %T", t, v)

	case Bool:
		b, ok := v.(bool)
		if !ok {
			return common.Hash{}, fmt.Errorf("bool field: unexpected %T", v)
		}
		var h common.Hash
		if b {
			h[31] = 1
		}
		return h, nil

	case Bytes32:
		switch b := v.(type) {
		case common.Hash:
			return b, nil
		case [32]byte:
			return common.Hash(b), nil
		}
		return common.Hash{}, fmt.Errorf("bytes32 field: unexpected %T", v)
	}

	return common.Hash{}, fmt.Errorf("unsupported field type %q", t)
}

// HashStruct is keccak(typeHash ‖ field_1 ‖ … ‖ field_n) in schema order.
func HashStruct(m Message) (common.Hash, error) {
	schema := m.Schema()
	values := m.FieldValues()
	if len(values) != len(schema.Fields) {
		return common.Hash{}, fmt.Errorf(
			"%s: %w: %d values for %d fields",
			schema.PrimaryType,
			ErrFieldCount,
			len(values),
			len(schema.Fields),
		)
	}

	buf := make([]byte, 0, 32*(len(values)+1))
	buf = append(buf, TypeHash(schema).Bytes()...)
	for i, f := range schema.Fields {
		enc, err := EncodeField(f.Type, values[i])
		if err != nil {
			return common.Hash{}, fmt.Errorf("%s.%s: %w", schema.PrimaryType, f.Name, err)
		}
		buf = append(buf, enc.Bytes()...)
	}

	return crypto.Keccak256Hash(buf), nil
}

// SigningHash is the digest that gets signed:
// keccak(0x19 ‖ 0x01 ‖ domainSeparator ‖ hashStruct(m)).
func SigningHash(m Message, d Domain) (common.Hash, error) {
	structHash, err := HashStruct(m)
	if err != nil {
		return common.Hash{}, err
	}

	sep := d.Separator()
	buf := make([]byte, 0, 66)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, sep.Bytes()...)
	buf = append(buf, structHash.Bytes()...)
	return crypto.Keccak256Hash(buf), nil
}
