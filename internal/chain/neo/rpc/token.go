package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/emperorhan/neo-wallet-engine/internal/chain/neo"
	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/emperorhan/neo-wallet-engine/internal/metrics"
	"github.com/shopspring/decimal"
)

var tokenInfoOperations = []string{"name", "symbol", "decimals", "totalSupply"}

// TokenInfo returns NEP-5 metadata for a contract. The four getters run in
// one invocation and the result is cached for the client's lifetime.
func (c *Client) TokenInfo(ctx context.Context, scriptHash string) (model.TokenInfo, error) {
	key := normalizeHash(scriptHash)
	info, hit, err := c.tokens.GetOrLoad(ctx, key, func(ctx context.Context) (model.TokenInfo, error) {
		return c.loadTokenInfo(ctx, key)
	})
	if hit {
		metrics.TokenInfoCacheLookups.WithLabelValues("hit").Inc()
	} else {
		metrics.TokenInfoCacheLookups.WithLabelValues("miss").Inc()
	}
	return info, err
}

func (c *Client) loadTokenInfo(ctx context.Context, scriptHash string) (model.TokenInfo, error) {
	hashLE, err := neo.ContractHashLE(scriptHash)
	if err != nil {
		return model.TokenInfo{}, newNodeError(KindMalformedRequest, "tokeninfo", err)
	}

	sb := NewScriptBuilder()
	for _, op := range tokenInfoOperations {
		sb.EmitAppCall(hashLE, op)
	}
	res, err := c.InvokeScript(ctx, sb.Bytes())
	if err != nil {
		return model.TokenInfo{}, err
	}
	if res.Faulted() {
		return model.TokenInfo{}, newNodeError(KindMalformedResponse, "tokeninfo", fmt.Errorf("vm state %s", res.State))
	}
	if len(res.Stack) < len(tokenInfoOperations) {
		return model.TokenInfo{}, newNodeError(KindMalformedResponse, "tokeninfo", fmt.Errorf("stack has %d items, want %d", len(res.Stack), len(tokenInfoOperations)))
	}

	name, err := stackString(res.Stack[0])
	if err != nil {
		return model.TokenInfo{}, newNodeError(KindMalformedResponse, "tokeninfo", fmt.Errorf("name: %w", err))
	}
	symbol, err := stackString(res.Stack[1])
	if err != nil {
		return model.TokenInfo{}, newNodeError(KindMalformedResponse, "tokeninfo", fmt.Errorf("symbol: %w", err))
	}
	decimals, err := stackInt(res.Stack[2])
	if err != nil || !decimals.IsInt64() || decimals.Int64() < 0 || decimals.Int64() > 18 {
		return model.TokenInfo{}, newNodeError(KindMalformedResponse, "tokeninfo", fmt.Errorf("decimals: %v", errOr(err, "out of range")))
	}
	supply, err := stackInt(res.Stack[3])
	if err != nil {
		return model.TokenInfo{}, newNodeError(KindMalformedResponse, "tokeninfo", fmt.Errorf("totalSupply: %w", err))
	}

	d := int32(decimals.Int64())
	info := model.TokenInfo{
		ScriptHash:  scriptHash,
		Name:        name,
		Symbol:      symbol,
		Decimals:    d,
		TotalSupply: decimal.NewFromBigInt(supply, -d),
	}
	c.logger.Debug("token info loaded", "script_hash", scriptHash, "symbol", symbol, "decimals", d)
	return info, nil
}

// TokenBalance invokes balanceOf for address and scales the raw integer by
// the contract's decimals.
func (c *Client) TokenBalance(ctx context.Context, scriptHash, address string) (model.Asset, error) {
	info, err := c.TokenInfo(ctx, scriptHash)
	if err != nil {
		return model.Asset{}, err
	}

	holder, err := neo.DecodeAddress(address)
	if err != nil {
		return model.Asset{}, newNodeError(KindMalformedRequest, "balanceOf", err)
	}
	hashLE, err := neo.ContractHashLE(info.ScriptHash)
	if err != nil {
		return model.Asset{}, newNodeError(KindMalformedRequest, "balanceOf", err)
	}

	script := NewScriptBuilder().EmitAppCall(hashLE, "balanceOf", holder).Bytes()
	res, err := c.InvokeScript(ctx, script)
	if err != nil {
		return model.Asset{}, err
	}
	if res.Faulted() {
		return model.Asset{}, newNodeError(KindMalformedResponse, "balanceOf", fmt.Errorf("vm state %s", res.State))
	}
	if len(res.Stack) == 0 {
		return model.Asset{}, newNodeError(KindMalformedResponse, "balanceOf", errors.New("empty stack"))
	}

	raw, err := stackInt(res.Stack[0])
	if err != nil {
		return model.Asset{}, newNodeError(KindMalformedResponse, "balanceOf", err)
	}
	if raw.Sign() < 0 {
		return model.Asset{}, newNodeError(KindMalformedResponse, "balanceOf", fmt.Errorf("negative balance %s", raw))
	}
	return info.Asset(decimal.NewFromBigInt(raw, -info.Decimals)), nil
}

func stackString(item model.StackItem) (string, error) {
	var s string
	if err := json.Unmarshal(item.Value, &s); err != nil {
		return "", fmt.Errorf("%s value: %w", item.Type, err)
	}
	if item.Type == "String" {
		return s, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%s value %q: %w", item.Type, s, err)
	}
	return string(raw), nil
}

// stackInt accepts Integer items (decimal strings or numbers) and ByteArray
// items (little-endian hex). An empty byte array is zero.
func stackInt(item model.StackItem) (*big.Int, error) {
	switch item.Type {
	case "Integer":
		var num json.Number
		if err := json.Unmarshal(item.Value, &num); err != nil {
			return nil, fmt.Errorf("integer value: %w", err)
		}
		n, ok := new(big.Int).SetString(num.String(), 10)
		if !ok {
			return nil, fmt.Errorf("integer value %q", num)
		}
		return n, nil
	case "ByteArray", "":
		var s string
		if err := json.Unmarshal(item.Value, &s); err != nil {
			return nil, fmt.Errorf("byte array value: %w", err)
		}
		raw, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("byte array value %q: %w", s, err)
		}
		return leToInt(raw), nil
	}
	return nil, fmt.Errorf("unsupported stack item type %q", item.Type)
}

func normalizeHash(h string) string {
	return strings.ToLower(strings.TrimPrefix(h, "0x"))
}

func errOr(err error, msg string) string {
	if err != nil {
		return err.Error()
	}
	return msg
}
