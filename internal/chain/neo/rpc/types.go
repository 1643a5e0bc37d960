package rpc

import "encoding/json"

type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// restEnvelope wraps every REST API payload.
type restEnvelope struct {
	Result json.RawMessage `json:"result"`
}

type AccountState struct {
	Version    int                 `json:"version"`
	Address    string              `json:"address"`
	ScriptHash string              `json:"scriptHash"`
	Assets     []TransferableAsset `json:"assets"`
	NEP5Tokens []TransferableAsset `json:"nep5Tokens"`
}

// TransferableAsset carries its value as a decimal string in whole units.
type TransferableAsset struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
	Value    string `json:"value"`
}

type claimableResult struct {
	Data *Claimable `json:"data"`
}

// Claimable amounts are integers in GAS fractions (1e-8).
type Claimable struct {
	Claims            []Claim `json:"claims"`
	TotalUnspentClaim int64   `json:"totalUnspentClaim"`
}

type Claim struct {
	Asset string `json:"asset"`
	Index int    `json:"index"`
	TxID  string `json:"txid"`
	Value int64  `json:"value"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Claim int64  `json:"claim"`
}
