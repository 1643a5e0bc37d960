package chain

import (
	"context"

	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
)

//go:generate mockgen -source=adapter.go -destination=mocks/mock_adapter.go -package=mocks

// NodeClient abstracts the remote NEO node so balance aggregation and the
// claim workflow stay transport-agnostic. Every call is a single round trip;
// callers own retry policy.
type NodeClient interface {
	// GetAccountState returns the native and NEP-5 balances held by address.
	GetAccountState(ctx context.Context, address string) (model.AddressSnapshot, error)

	// GetClaimable returns the GAS that can be claimed right now together with
	// the outputs a claim transaction must reference.
	GetClaimable(ctx context.Context, address string) (model.ClaimableInfo, error)

	// InvokeScript runs a read-only VM script on the node.
	InvokeScript(ctx context.Context, script []byte) (model.InvokeResult, error)

	// SendRawTransaction relays a signed transaction. The bool is the node's
	// acceptance verdict.
	SendRawTransaction(ctx context.Context, raw []byte) (bool, error)

	// TokenBalance returns the balance of a NEP-5 contract for address,
	// scaled by the contract's decimals.
	TokenBalance(ctx context.Context, scriptHash, address string) (model.Asset, error)

	// SetEndpoint swaps the JSON-RPC endpoint. Calls already in flight keep
	// the endpoint they started with.
	SetEndpoint(rpcURL string)

	// Endpoint returns the JSON-RPC endpoint new calls will use.
	Endpoint() string
}
