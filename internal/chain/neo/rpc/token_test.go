package rpc

import (
	"context"
	"encoding/hex"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/emperorhan/neo-wallet-engine/internal/chain/neo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rpxHash = "ecc6b20d3ccac1ee9ef109af5a7cdb85706b1df9"

func hexString(s string) string {
	return hex.EncodeToString([]byte(s))
}

// tokenNode answers the metadata script with RPX metadata and any other
// script with the given raw balance.
func tokenNode(t *testing.T, balanceLE string, infoCalls *atomic.Int32) string {
	t.Helper()
	hashLE, err := neo.ContractHashLE(rpxHash)
	require.NoError(t, err)

	infoScript := NewScriptBuilder()
	for _, op := range tokenInfoOperations {
		infoScript.EmitAppCall(hashLE, op)
	}
	infoHex := infoScript.Hex()

	return rpcServer(t, func(method string, params []interface{}) []byte {
		require.Equal(t, "invokescript", method)
		if params[0] == infoHex {
			infoCalls.Add(1)
			return rpcOK(map[string]interface{}{
				"state": "HALT, BREAK",
				"stack": []map[string]interface{}{
					{"type": "ByteArray", "value": hexString("Red Pulse Token")},
					{"type": "ByteArray", "value": hexString("RPX")},
					{"type": "Integer", "value": "8"},
					{"type": "ByteArray", "value": "00e1f505"},
				},
			})
		}
		return rpcOK(map[string]interface{}{
			"state": "HALT, BREAK",
			"stack": []map[string]interface{}{{"type": "ByteArray", "value": balanceLE}},
		})
	}).URL
}

func TestTokenInfo_SingleInvokeThenCached(t *testing.T) {
	var calls atomic.Int32
	client := NewClient(tokenNode(t, "", &calls), "", newTestLogger())

	info, err := client.TokenInfo(context.Background(), "0x"+rpxHash)
	require.NoError(t, err)
	assert.Equal(t, "Red Pulse Token", info.Name)
	assert.Equal(t, "RPX", info.Symbol)
	assert.Equal(t, int32(8), info.Decimals)
	assert.Equal(t, "1", info.TotalSupply.String())

	_, err = client.TokenInfo(context.Background(), rpxHash)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenBalance_ScalesByDecimals(t *testing.T) {
	var calls atomic.Int32
	// 15050000000 = 150.5 RPX at 8 decimals
	raw := intToLE(big.NewInt(15050000000))
	client := NewClient(tokenNode(t, hex.EncodeToString(raw), &calls), "", newTestLogger())

	asset, err := client.TokenBalance(context.Background(), rpxHash, testAddress)
	require.NoError(t, err)
	assert.Equal(t, "RPX", asset.Symbol)
	assert.Equal(t, "150.5", asset.Amount.String())
	assert.Equal(t, rpxHash, asset.ID)

	_, err = client.TokenBalance(context.Background(), rpxHash, testAddress)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "metadata is looked up once")
}

func TestTokenBalance_EmptyByteArrayIsZero(t *testing.T) {
	var calls atomic.Int32
	client := NewClient(tokenNode(t, "", &calls), "", newTestLogger())

	asset, err := client.TokenBalance(context.Background(), rpxHash, testAddress)
	require.NoError(t, err)
	assert.True(t, asset.Amount.IsZero())
}

func TestTokenBalance_InvalidAddress(t *testing.T) {
	var calls atomic.Int32
	client := NewClient(tokenNode(t, "", &calls), "", newTestLogger())

	_, err := client.TokenBalance(context.Background(), rpxHash, "not-an-address")
	assert.True(t, IsKind(err, KindMalformedRequest))
}

func TestTokenInfo_FaultIsMalformed(t *testing.T) {
	ts := rpcServer(t, func(string, []interface{}) []byte {
		return rpcOK(map[string]interface{}{"state": "FAULT, BREAK", "stack": []interface{}{}})
	})
	client := NewClient(ts.URL, "", newTestLogger())

	_, err := client.TokenInfo(context.Background(), rpxHash)
	assert.True(t, IsKind(err, KindMalformedResponse))
}
