package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/banky/hyperliquid-exchange/eip712"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vmihailenco/msgpack/v5"
)

// Action is anything that can be posted to /exchange. The set of
// implementations is closed: every action is either an L1Action or a
// UserSignedAction.
type Action interface {
	// ActionType is the wire "type" tag.
	ActionType() string
	// Weight is the rate limit cost of the action.
	Weight() int
}

// L1Action is signed through a phantom agent under the exchange domain. Its
// hash covers the msgpack encoding of the tagged action.
type L1Action interface {
	Action
	l1()
}

// UserSignedAction is signed directly under the transaction domain of the
// target network.
type UserSignedAction interface {
	Action
	eip712.Message
	// withEnvelope returns a copy stamped with the network fields and the
	// nonce, which user-signed actions carry as their time or nonce field.
	withEnvelope(network constants.Network, nonce uint64) UserSignedAction
}

// validator is implemented by actions that can reject caller input before
// anything is signed.
type validator interface {
	validate() error
}

// tagged serialises an action with its "type" tag as the first key, both as
// JSON for the wire and as msgpack for the action hash.
type tagged struct {
	action Action
}

func (t tagged) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(t.action)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("%s: action must encode as an object", t.action.ActionType())
	}

	tag, err := json.Marshal(t.action.ActionType())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if !bytes.Equal(body, []byte("{}")) {
		buf.WriteByte(',')
	}
	buf.Write(body[1:])
	return buf.Bytes(), nil
}

var _ msgpack.CustomEncoder = tagged{}

func (t tagged) EncodeMsgpack(enc *msgpack.Encoder) error {
	body, err := marshalMsgpack(t.action)
	if err != nil {
		return err
	}

	r := bytes.NewReader(body)
	n, err := msgpack.NewDecoder(r).DecodeMapLen()
	if err != nil {
		return fmt.Errorf("%s: action must encode as a map: %w", t.action.ActionType(), err)
	}
	fields := body[len(body)-r.Len():]

	if err := enc.EncodeMapLen(n + 1); err != nil {
		return err
	}
	if err := enc.EncodeString("type"); err != nil {
		return err
	}
	if err := enc.EncodeString(t.action.ActionType()); err != nil {
		return err
	}
	_, err = enc.Writer().Write(fields)
	return err
}

// marshalMsgpack encodes v the way the exchange hashes actions: struct
// fields in declaration order and integers in their most compact form.
func marshalMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// agentAction wraps an action posted on behalf of an approved agent. The
// signature still covers only the inner action.
type agentAction struct {
	AgentAddress string `json:"agentAddress"`
	AgentAction  tagged `json:"agentAction"`
	Source       string `json:"source"`
}

func (a agentAction) ActionType() string { return "agent" }
func (a agentAction) Weight() int        { return a.AgentAction.action.Weight() }

func wrapForAgent(action Action, agent common.Address, network constants.Network) agentAction {
	return agentAction{
		AgentAddress: addressToWire(agent),
		AgentAction:  tagged{action: action},
		Source:       network.AgentSource(),
	}
}

// addressToWire renders an address as lower case hex, the form the exchange
// expects and hashes.
func addressToWire(a common.Address) string {
	return strings.ToLower(a.Hex())
}
