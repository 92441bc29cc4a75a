package exchange

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/banky/hyperliquid-exchange/signer"
	"github.com/banky/hyperliquid-exchange/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/mo"
	"github.com/vmihailenco/msgpack/v5"
)

// Known-answer vectors are signed with this key.
const testKeyHex = "0123456789012345678901234567890123456789012345678901234567890123"

func testSigner(t testing.TB) *signer.PrivateKeySigner {
	t.Helper()
	s, err := signer.NewPrivateKeySignerFromHex(testKeyHex)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func noVault() mo.Option[common.Address] { return mo.None[common.Address]() }
func noExpiry() mo.Option[uint64]        { return mo.None[uint64]() }

func sign(
	t testing.TB,
	s signer.Signer,
	action Action,
	network constants.Network,
	nonce uint64,
) signer.Signature {
	t.Helper()
	if us, ok := action.(UserSignedAction); ok {
		action = us.withEnvelope(network, nonce)
	}
	digest, err := signingDigest(action, network, nonce, noVault(), noExpiry())
	if err != nil {
		t.Fatal(err)
	}
	sig, err := s.Sign(context.Background(), digest)
	if err != nil {
		t.Fatal(err)
	}
	return sig
}

func singleOrderAction(t testing.TB, order OrderRequest, asset int) OrderAction {
	t.Helper()
	wire, err := order.toOrderWire(asset)
	if err != nil {
		t.Fatal(err)
	}
	return OrderAction{Orders: []OrderWire{wire}, Grouping: GroupingNa}
}

func TestPhantomAgentConnectionID(t *testing.T) {
	order := OrderRequest{
		Coin:      "ETH",
		IsBuy:     true,
		Sz:        0.0147,
		LimitPx:   1670.1,
		OrderType: OrderType{Limit: &LimitOrder{Tif: TifIoc}},
	}
	action := singleOrderAction(t, order, 4)

	id, err := connectionID(action, 1677777606040, noVault(), noExpiry())
	td.CmpNoError(t, err)
	td.Cmp(t, id, common.HexToHash(
		"0x0fcbeda5ae3c4950a548021552a4fea2226858c4453571bf3f24ba017eac2908",
	))
}

func TestL1SigningOrderMatches(t *testing.T) {
	s := testSigner(t)
	limit := LimitBuy("ETH", 100, 100)

	withCloid := limit
	withCloid.Cloid = mo.Some(types.HexToCloid("0x00000000000000000000000000000001"))

	tpsl := OrderRequest{
		Coin:    "ETH",
		IsBuy:   true,
		Sz:      100,
		LimitPx: 100,
		OrderType: OrderType{Trigger: &TriggerOrder{
			IsMarket:  true,
			TriggerPx: 103,
			Tpsl:      TpslSl,
		}},
	}

	tests := []struct {
		name     string
		order    OrderRequest
		network  constants.Network
		expected signer.Signature
		checkS   bool
	}{
		{
			name:    "limit mainnet",
			order:   limit,
			network: constants.Mainnet,
			expected: signer.Signature{
				R: common.HexToHash("0xd65369825a9df5d80099e513cce430311d7d26ddf477f5b3a33d2806b100d78e"),
				V: 28,
			},
		},
		{
			name:     "limit testnet",
			order:    limit,
			network:  constants.Testnet,
			expected: signer.Signature{V: 27},
		},
		{
			name:    "cloid mainnet",
			order:   withCloid,
			network: constants.Mainnet,
			expected: signer.Signature{
				R: common.HexToHash("0x41ae18e8239a56cacbc5dad94d45d0b747e5da11ad564077fcac71277a946e3"),
				S: common.HexToHash("0x3c61f667e747404fe7eea8f90ab0e76cc12ce60270438b2058324681a00116da"),
				V: 27,
			},
			checkS: true,
		},
		{
			name:    "cloid testnet",
			order:   withCloid,
			network: constants.Testnet,
			expected: signer.Signature{
				R: common.HexToHash("0xeba0664bed2676fc4e5a743bf89e5c7501aa6d870bdb9446e122c9466c5cd16d"),
				S: common.HexToHash("0x7f3e74825c9114bc59086f1eebea2928c190fdfbfde144827cb02b85bbe90988"),
				V: 28,
			},
			checkS: true,
		},
		{
			name:    "tpsl mainnet",
			order:   tpsl,
			network: constants.Mainnet,
			expected: signer.Signature{
				R: common.HexToHash("0x98343f2b5ae8e26bb2587daad3863bc70d8792b09af1841b6fdd530a2065a3f9"),
				V: 27,
			},
		},
		{
			name:     "tpsl testnet",
			order:    tpsl,
			network:  constants.Testnet,
			expected: signer.Signature{V: 28},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := sign(t, s, singleOrderAction(t, tt.order, 1), tt.network, 0)

			if tt.expected.R != (common.Hash{}) {
				td.Cmp(t, sig.R, tt.expected.R, "R")
			}
			if tt.checkS {
				td.Cmp(t, sig.S, tt.expected.S, "S")
			}
			td.Cmp(t, sig.V, tt.expected.V, "V")
		})
	}
}

func TestL1SigningAccountActions(t *testing.T) {
	s := testSigner(t)
	cancelAt := uint64(123456789)

	tests := []struct {
		name     string
		action   L1Action
		network  constants.Network
		expected signer.Signature
		checkS   bool
	}{
		{
			name:    "createSubAccount mainnet",
			action:  CreateSubAccountAction{Name: "example"},
			network: constants.Mainnet,
			expected: signer.Signature{
				R: common.HexToHash("0x51096fe3239421d16b671e192f574ae24ae14329099b6db28e479b86cdd6caa7"),
				V: 27,
			},
		},
		{
			name:     "createSubAccount testnet",
			action:   CreateSubAccountAction{Name: "example"},
			network:  constants.Testnet,
			expected: signer.Signature{V: 28},
		},
		{
			name: "subAccountTransfer mainnet",
			action: SubAccountTransferAction{
				SubAccountUser: "0x1d9470d4b963f552e6f671a81619d395877bf409",
				IsDeposit:      true,
				Usd:            10,
			},
			network: constants.Mainnet,
			expected: signer.Signature{
				R: common.HexToHash("0x43592d7c6c7d816ece2e206f174be61249d651944932b13343f4d13f306ae602"),
				S: common.HexToHash("0x71a926cb5c9a7c01c3359ec4c4c34c16ff8107d610994d4de0e6430e5cc0f4c9"),
				V: 28,
			},
			checkS: true,
		},
		{
			name:    "scheduleCancel without time",
			action:  ScheduleCancelAction{},
			network: constants.Mainnet,
			expected: signer.Signature{
				R: common.HexToHash("0x6cdfb286702f5917e76cd9b3b8bf678fcc49aec194c02a73e6d4f16891195df9"),
				V: 27,
			},
		},
		{
			name:    "scheduleCancel with time",
			action:  ScheduleCancelAction{Time: &cancelAt},
			network: constants.Mainnet,
			expected: signer.Signature{
				R: common.HexToHash("0x609cb20c737945d070716dcc696ba030e9976fcf5edad87afa7d877493109d55"),
				V: 28,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := sign(t, s, tt.action, tt.network, 0)

			if tt.expected.R != (common.Hash{}) {
				td.Cmp(t, sig.R, tt.expected.R, "R")
			}
			if tt.checkS {
				td.Cmp(t, sig.S, tt.expected.S, "S")
			}
			td.Cmp(t, sig.V, tt.expected.V, "V")
		})
	}
}

func TestUserSignedActions(t *testing.T) {
	s := testSigner(t)
	destination := "0x5e9ee1089755c3435139848e47e6635505d5a13a"

	sig := sign(t, s, UsdSendAction{Destination: destination, Amount: "1"}, constants.Testnet, 1687816341423)
	td.Cmp(t, sig.R, common.HexToHash("0x637b37dd731507cdd24f46532ca8ba6eec616952c56218baeff04144e4a77073"))
	td.Cmp(t, sig.S, common.HexToHash("0x11a6a24900e6e314136d2592e2f8d502cd89b7c15b198e1bee043c9589f9fad7"))
	td.Cmp(t, sig.V, byte(27))

	sig = sign(t, s, WithdrawAction{Destination: destination, Amount: "1"}, constants.Testnet, 1687816341423)
	td.Cmp(t, sig.R, common.HexToHash("0x8363524c799e90ce9bc41022f7c39b4e9bdba786e5f9c72b20e43e1462c37cf9"))
	td.Cmp(t, sig.V, byte(28))
}

func TestUserSignedFullSignatures(t *testing.T) {
	s, err := signer.NewPrivateKeySignerFromHex(
		"e908f86dbb4d55ac876378565aafeabc187f6690f046459397b17d9b9a19688e",
	)
	td.Require(t).CmpNoError(err)

	// The destination is hashed exactly as given, mixed case included.
	const destination = "0x0D1d9635D0640821d15e323ac8AdADfA9c111414"
	const nonce = 1690393044548

	sig := sign(t, s, UsdSendAction{Destination: destination, Amount: "1"}, constants.Testnet, nonce)
	td.Cmp(t, sig.Hex(), "214d507bbdaebba52fa60928f904a8b2df73673e3baba6133d66fe846c7ef70451e82453a6d8db124e7ed6e60fa00d4b7c46e4d96cb2bd61fd81b6e8953cc9d21b")

	sig = sign(t, s, WithdrawAction{Destination: destination, Amount: "1"}, constants.Testnet, nonce)
	td.Cmp(t, sig.Hex(), "b3172e33d2262dac2b4cb135ce3c167fda55dafa6c62213564ab728b9f9ba76b769a938e9f6d603dae7154c83bf5a4c3ebab81779dc2db25463a3ed663c82ae41c")
}

func TestUserSignedEnvelope(t *testing.T) {
	action := NewApproveAgent(common.HexToAddress("0xAbCdEf0000000000000000000000000000000001"), "")
	stamped := action.withEnvelope(constants.Testnet, 42).(ApproveAgentAction)

	td.Cmp(t, stamped, ApproveAgentAction{
		HyperliquidChain: "Testnet",
		SignatureChainID: "0x66eee",
		AgentAddress:     "0xabcdef0000000000000000000000000000000001",
		Nonce:            42,
	})

	// agentName is signed as "" but left off the wire.
	td.Cmp(t, stamped.FieldValues()[2], "")
	body, err := json.Marshal(tagged{action: stamped})
	td.CmpNoError(t, err)
	td.Cmp(t, json.RawMessage(body), td.JSON(`{
		"type": "approveAgent",
		"hyperliquidChain": "Testnet",
		"signatureChainId": "0x66eee",
		"agentAddress": "0xabcdef0000000000000000000000000000000001",
		"nonce": 42
	}`))

	mainnet := NewUsdSend(common.Address{}, "1").withEnvelope(constants.Mainnet, 7).(UsdSendAction)
	td.Cmp(t, mainnet.SignatureChainID, "0xa4b1")
	td.Cmp(t, mainnet.HyperliquidChain, "Mainnet")
	td.Cmp(t, mainnet.Time, uint64(7))
}

func TestUserSignedTypeStrings(t *testing.T) {
	tests := []struct {
		action   UserSignedAction
		expected string
	}{
		{UsdSendAction{}, "UsdSend(string hyperliquidChain,string destination,string amount,uint64 time)"},
		{SpotSendAction{}, "SpotSend(string hyperliquidChain,string destination,string token,string amount,uint64 time)"},
		{WithdrawAction{}, "Withdraw(string hyperliquidChain,string destination,string amount,uint64 time)"},
		{UsdClassTransferAction{}, "UsdClassTransfer(string hyperliquidChain,string amount,bool toPerp,uint64 nonce)"},
		{ApproveAgentAction{}, "ApproveAgent(string hyperliquidChain,address agentAddress,string agentName,uint64 nonce)"},
		{ApproveBuilderFeeAction{}, "ApproveBuilderFee(string hyperliquidChain,string maxFeeRate,string builder,uint64 nonce)"},
		{TokenDelegateAction{}, "TokenDelegate(string hyperliquidChain,address validator,uint64 wei,bool isUndelegate,uint64 nonce)"},
	}

	for _, tt := range tests {
		schema := tt.action.Schema()
		td.Cmp(t, schema.TypeString(), tt.expected, tt.action.ActionType())
		td.Cmp(t, schema.EncodeType(), "HyperliquidTransaction:"+tt.expected)
		td.Cmp(t, len(tt.action.FieldValues()), len(schema.Fields), tt.action.ActionType())
	}
}

func TestConnectionIDLayout(t *testing.T) {
	action := ScheduleCancelAction{}
	vault := common.HexToAddress("0x1719884eb866cb12b2287399b15f7db5e7d775ea")
	const (
		nonce   = uint64(1700000000000)
		expires = uint64(1700000060000)
	)

	packed, err := marshalMsgpack(tagged{action: action})
	td.Require(t).CmpNoError(err)
	// {"type": "scheduleCancel"} as a fixmap of one entry.
	td.Cmp(t, packed, append([]byte{0x81, 0xa4, 't', 'y', 'p', 'e', 0xae}, "scheduleCancel"...))

	expected := func(tail ...[]byte) common.Hash {
		data := binary.BigEndian.AppendUint64(bytes.Clone(packed), nonce)
		for _, b := range tail {
			data = append(data, b...)
		}
		return crypto.Keccak256Hash(data)
	}

	plain, err := connectionID(action, nonce, noVault(), noExpiry())
	td.CmpNoError(t, err)
	td.Cmp(t, plain, expected([]byte{0x00}))

	withVault, err := connectionID(action, nonce, mo.Some(vault), noExpiry())
	td.CmpNoError(t, err)
	td.Cmp(t, withVault, expected([]byte{0x01}, vault.Bytes()))

	withExpiry, err := connectionID(action, nonce, noVault(), mo.Some(expires))
	td.CmpNoError(t, err)
	td.Cmp(t, withExpiry, expected([]byte{0x00, 0x00}, binary.BigEndian.AppendUint64(nil, expires)))

	td.CmpNot(t, plain, withVault)
	td.CmpNot(t, plain, withExpiry)
}

func TestTaggedEncoding(t *testing.T) {
	cloid := types.HexToCloid("0x00000000000000000000000000000001")
	action := CancelByCloidAction{Cancels: []CancelByCloidWire{{Asset: 3, Cloid: cloid}}}

	body, err := json.Marshal(tagged{action: action})
	td.CmpNoError(t, err)
	td.Cmp(t, string(body), `{"type":"cancelByCloid","cancels":[{"asset":3,"cloid":"0x00000000000000000000000000000001"}]}`)

	empty, err := json.Marshal(tagged{action: ScheduleCancelAction{}})
	td.CmpNoError(t, err)
	td.Cmp(t, string(empty), `{"type":"scheduleCancel"}`)

	packed, err := marshalMsgpack(tagged{action: action})
	td.CmpNoError(t, err)

	var decoded map[string]any
	td.CmpNoError(t, msgpack.Unmarshal(packed, &decoded))
	td.Cmp(t, decoded, td.SuperMapOf(map[string]any{
		"type": "cancelByCloid",
	}, nil))
	td.Cmp(t, decoded["cancels"], td.Len(1))
}

func TestModifyRefEncoding(t *testing.T) {
	order, err := LimitBuy("ETH", 1, 2000).toOrderWire(1)
	td.Require(t).CmpNoError(err)

	cloid := types.HexToCloid("0x0000000000000000000000000000000a")
	action := BatchModifyAction{Modifies: []ModifyWire{
		{Oid: OrderRef{Oid: 12}, Order: order},
		{Oid: OrderRef{Cloid: &cloid}, Order: order},
	}}

	body, err := json.Marshal(tagged{action: action})
	td.CmpNoError(t, err)
	td.Cmp(t, json.RawMessage(body), td.JSON(`{
		"type": "batchModify",
		"modifies": [
			{"oid": 12, "order": $order},
			{"oid": "0x0000000000000000000000000000000a", "order": $order}
		]
	}`, td.Tag("order", td.JSON(`{"a":1,"b":true,"p":"2000","s":"1","r":false,"t":{"limit":{"tif":"Gtc"}}}`))))

	packed, err := marshalMsgpack(tagged{action: action})
	td.CmpNoError(t, err)
	td.Cmp(t, bytes.Contains(packed, []byte{0xa3, 'o', 'i', 'd', 0x0c}), true, "oid as a positive fixint")
}
