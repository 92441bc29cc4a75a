package types

import (
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const cloidLength = 16

// Cloid is a client order id: 16 bytes, rendered as 0x followed by 32 hex
// digits.
type Cloid [cloidLength]byte

var cloidT = reflect.TypeFor[Cloid]()

// BytesToCloid returns Cloid with value b.
// If b is larger than len(c), b will be cropped from the left.
func BytesToCloid(b []byte) Cloid {
	var c Cloid
	c.SetBytes(b)
	return c
}

// HexToCloid returns Cloid with byte values of s.
// If s is larger than len(c), s will be cropped from the left.
func HexToCloid(s string) Cloid {
	return BytesToCloid(common.FromHex(s))
}

// NewCloid returns a random Cloid backed by a version 4 UUID.
func NewCloid() Cloid {
	return CloidFromUUID(uuid.New())
}

// CloidFromUUID reuses the 16 bytes of u as a Cloid.
func CloidFromUUID(u uuid.UUID) Cloid {
	return Cloid(u)
}

// UUID returns c reinterpreted as a UUID.
func (c Cloid) UUID() uuid.UUID {
	return uuid.UUID(c)
}

// IsZero reports whether c is the all-zero id.
func (c Cloid) IsZero() bool {
	return c == Cloid{}
}

// BigToCloid sets byte representation of b to cloid.
// If b is larger than len(h), b will be cropped from the left.
func BigToCloid(b *big.Int) Cloid {
	return BytesToCloid(b.Bytes())
}

// SetBytes sets the Cloid to the value of b.
// If b is larger than len(c), b will be cropped from the left.
func (c *Cloid) SetBytes(b []byte) {
	if len(b) > len(c) {
		b = b[len(b)-cloidLength:]
	}

	copy(c[cloidLength-len(b):], b)
}

// Hex converts a Cloid to a hex string.
func (c Cloid) Hex() string { return hexutil.Encode(c[:]) }

// String implements the stringer interface and is used also by the logger when
// doing full logging into a file.
func (c Cloid) String() string {
	return c.Hex()
}

// UnmarshalJSON parses a Cloid in hex syntax.
func (c *Cloid) UnmarshalJSON(input []byte) error {
	return hexutil.UnmarshalFixedJSON(cloidT, input, c[:])
}

// MarshalText returns the hex representation of c.
func (c Cloid) MarshalText() ([]byte, error) {
	return hexutil.Bytes(c[:]).MarshalText()
}

// EncodeMsgpack writes the cloid as its hex string, the form the exchange
// hashes.
func (c Cloid) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(c.Hex())
}

func (c *Cloid) DecodeMsgpack(dec *msgpack.Decoder) error {
	s, err := dec.DecodeString()
	if err != nil {
		return err
	}

	*c = HexToCloid(s)
	return nil
}
