package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/shopspring/decimal"
)

const gasFractionExp = -8

func (c *Client) GetBlockCount(ctx context.Context) (int64, error) {
	return c.BlockCountAt(ctx, c.Endpoint())
}

// BlockCountAt queries a specific endpoint without touching the client's
// current one. Used for endpoint probing.
func (c *Client) BlockCountAt(ctx context.Context, endpoint string) (int64, error) {
	result, err := c.callAt(ctx, endpoint, "getblockcount", nil)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := json.Unmarshal(result, &count); err != nil {
		return 0, newNodeError(KindMalformedResponse, "getblockcount", fmt.Errorf("unmarshal block count: %w", err))
	}
	return count, nil
}

func (c *Client) GetAccountState(ctx context.Context, address string) (model.AddressSnapshot, error) {
	result, err := c.getREST(ctx, address, "accountstate")
	if err != nil {
		return model.AddressSnapshot{}, err
	}

	var state AccountState
	if err := json.Unmarshal(result, &state); err != nil {
		return model.AddressSnapshot{}, newNodeError(KindMalformedResponse, "rest.accountstate", fmt.Errorf("unmarshal account state: %w", err))
	}

	assets := make([]model.Asset, 0, len(state.Assets)+len(state.NEP5Tokens))
	for _, list := range [][]TransferableAsset{state.Assets, state.NEP5Tokens} {
		for _, ta := range list {
			asset, err := ta.toAsset()
			if err != nil {
				return model.AddressSnapshot{}, newNodeError(KindMalformedResponse, "rest.accountstate", err)
			}
			assets = append(assets, asset)
		}
	}
	return model.NewSnapshot(address, assets), nil
}

func (ta TransferableAsset) toAsset() (model.Asset, error) {
	amount, err := decimal.NewFromString(ta.Value)
	if err != nil {
		return model.Asset{}, fmt.Errorf("asset %s value %q: %w", ta.Symbol, ta.Value, err)
	}
	if amount.IsNegative() {
		return model.Asset{}, fmt.Errorf("asset %s has negative value %s", ta.Symbol, ta.Value)
	}
	kind := model.AssetKindNEP5
	if model.IsNativeID(ta.ID) {
		kind = model.AssetKindNative
	}
	return model.Asset{
		ID:       ta.ID,
		Name:     ta.Name,
		Symbol:   ta.Symbol,
		Decimals: ta.Decimals,
		Amount:   amount,
		Kind:     kind,
	}, nil
}

func (c *Client) GetClaimable(ctx context.Context, address string) (model.ClaimableInfo, error) {
	result, err := c.getREST(ctx, address, "claimablegas")
	if err != nil {
		return model.ClaimableInfo{}, err
	}

	var wrapped claimableResult
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return model.ClaimableInfo{}, newNodeError(KindMalformedResponse, "rest.claimablegas", fmt.Errorf("unmarshal claimable: %w", err))
	}
	if wrapped.Data == nil {
		return model.ClaimableInfo{}, newNodeError(KindMalformedResponse, "rest.claimablegas", fmt.Errorf("missing data"))
	}

	info := model.ClaimableInfo{
		Address: address,
		Amount:  decimal.New(wrapped.Data.TotalUnspentClaim, gasFractionExp),
		Claims:  make([]model.ClaimReference, 0, len(wrapped.Data.Claims)),
	}
	for _, cl := range wrapped.Data.Claims {
		info.Claims = append(info.Claims, model.ClaimReference{
			TxID:        cl.TxID,
			Index:       cl.Index,
			Value:       decimal.NewFromInt(cl.Value),
			StartHeight: cl.Start,
			EndHeight:   cl.End,
			Unclaimed:   decimal.New(cl.Claim, gasFractionExp),
		})
	}
	return info, nil
}

func (c *Client) InvokeScript(ctx context.Context, script []byte) (model.InvokeResult, error) {
	result, err := c.call(ctx, "invokescript", []interface{}{hex.EncodeToString(script)})
	if err != nil {
		return model.InvokeResult{}, err
	}

	var out model.InvokeResult
	if err := json.Unmarshal(result, &out); err != nil {
		return model.InvokeResult{}, newNodeError(KindMalformedResponse, "invokescript", fmt.Errorf("unmarshal invoke result: %w", err))
	}
	return out, nil
}

func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (bool, error) {
	result, err := c.call(ctx, "sendrawtransaction", []interface{}{hex.EncodeToString(raw)})
	if err != nil {
		return false, err
	}

	var accepted bool
	if err := json.Unmarshal(result, &accepted); err != nil {
		return false, newNodeError(KindMalformedResponse, "sendrawtransaction", fmt.Errorf("unmarshal verdict: %w", err))
	}
	return accepted, nil
}
