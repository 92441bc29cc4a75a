package exchange

import (
	"encoding/binary"
	"fmt"

	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/banky/hyperliquid-exchange/eip712"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/samber/mo"
)

// connectionID hashes an L1 action together with the values that bind it to
// one submission:
//
//	keccak(msgpack(action) | nonce | vault marker | [expiresAfter marker])
//
// The vault marker is 0x00, or 0x01 followed by the vault address. The
// expiry marker is 0x00 followed by the expiry, and is omitted when unset.
func connectionID(
	action L1Action,
	nonce uint64,
	vault mo.Option[common.Address],
	expiresAfter mo.Option[uint64],
) (common.Hash, error) {
	data, err := marshalMsgpack(tagged{action: action})
	if err != nil {
		return common.Hash{}, fmt.Errorf("msgpack %s: %w", action.ActionType(), err)
	}

	data = binary.BigEndian.AppendUint64(data, nonce)

	if v, ok := vault.Get(); ok {
		data = append(data, 0x01)
		data = append(data, v.Bytes()...)
	} else {
		data = append(data, 0x00)
	}

	if e, ok := expiresAfter.Get(); ok {
		data = append(data, 0x00)
		data = binary.BigEndian.AppendUint64(data, e)
	}

	return crypto.Keccak256Hash(data), nil
}

// signingDigest is the digest the signer signs for action. L1 actions sign
// the phantom agent under the exchange domain; user-signed actions sign
// themselves under the transaction domain of network, and ignore vault and
// expiry. User-signed actions must already carry their envelope.
func signingDigest(
	action Action,
	network constants.Network,
	nonce uint64,
	vault mo.Option[common.Address],
	expiresAfter mo.Option[uint64],
) (common.Hash, error) {
	switch a := action.(type) {
	case L1Action:
		id, err := connectionID(a, nonce, vault, expiresAfter)
		if err != nil {
			return common.Hash{}, err
		}
		agent := eip712.Agent{Source: network.AgentSource(), ConnectionID: id}
		return eip712.SigningHash(agent, eip712.ExchangeDomain())

	case UserSignedAction:
		return eip712.SigningHash(a, eip712.TransactionDomain(network.ChainID()))
	}
	return common.Hash{}, fmt.Errorf("unsupported action %T", action)
}
