package eip712

import "github.com/ethereum/go-ethereum/common"

var agentSchema = Schema{
	PrimaryType: "Agent",
	Fields: []Field{
		{Name: "source", Type: String},
		{Name: "connectionId", Type: Bytes32},
	},
}

// Agent is the phantom agent signed in place of an L1 action. ConnectionID is
// the hash of the action, its nonce and its vault.
type Agent struct {
	Source       string
	ConnectionID common.Hash
}

func (a Agent) Schema() Schema {
	return agentSchema
}

func (a Agent) FieldValues() []any {
	return []any{a.Source, a.ConnectionID}
}
