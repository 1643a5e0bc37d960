package rpc

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emperorhan/neo-wallet-engine/internal/chain/neo"
	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddress = func() string {
	hash := make([]byte, 20)
	for i := range hash {
		hash[i] = byte(i + 1)
	}
	addr, err := neo.EncodeAddress(hash)
	if err != nil {
		panic(err)
	}
	return addr
}()

func restServer(t *testing.T, routes map[string][]byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestGetAccountState_Success(t *testing.T) {
	ts := restServer(t, map[string][]byte{
		"/api/" + testAddress + "/accountstate": restOK(AccountState{
			Version: 0,
			Address: testAddress,
			Assets: []TransferableAsset{
				{ID: model.NEOAssetID, Name: "NEO", Symbol: "NEO", Decimals: 0, Value: "10"},
				{ID: model.GASAssetID, Name: "GAS", Symbol: "GAS", Decimals: 8, Value: "0.12345678"},
			},
			NEP5Tokens: []TransferableAsset{
				{ID: "ecc6b20d3ccac1ee9ef109af5a7cdb85706b1df9", Name: "Red Pulse Token", Symbol: "RPX", Decimals: 8, Value: "150.5"},
			},
		}),
	})

	client := NewClient("http://unused:1", ts.URL+"/api/", newTestLogger())
	snap, err := client.GetAccountState(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, testAddress, snap.Address)
	assert.Equal(t, "10", snap.NEO().Amount.String())
	assert.Equal(t, "0.12345678", snap.GAS().Amount.String())
	require.Contains(t, snap.Tokens, "RPX")
	assert.Equal(t, "150.5", snap.Tokens["RPX"].Amount.String())
	assert.Equal(t, model.AssetKindNEP5, snap.Tokens["RPX"].Kind)
}

func TestGetAccountState_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"missing result", []byte(`{"status":"ok"}`)},
		{"null result", []byte(`{"result":null}`)},
		{"wrong shape", []byte(`{"result":[1,2,3]}`)},
		{"bad amount", restOK(AccountState{Assets: []TransferableAsset{{ID: model.NEOAssetID, Symbol: "NEO", Value: "ten"}}})},
		{"negative amount", restOK(AccountState{Assets: []TransferableAsset{{ID: model.NEOAssetID, Symbol: "NEO", Value: "-1"}}})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := restServer(t, map[string][]byte{"/" + testAddress + "/accountstate": tc.body})
			client := NewClient("http://unused:1", ts.URL, newTestLogger())

			_, err := client.GetAccountState(context.Background(), testAddress)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindMalformedResponse), "got %v", err)
		})
	}
}

func TestGetAccountState_InvalidRESTURL(t *testing.T) {
	client := NewClient("http://unused:1", "", newTestLogger())
	_, err := client.GetAccountState(context.Background(), testAddress)
	assert.True(t, IsKind(err, KindInvalidEndpoint))
}

func TestGetClaimable_Success(t *testing.T) {
	ts := restServer(t, map[string][]byte{
		"/" + testAddress + "/claimablegas": restOK(map[string]interface{}{
			"data": Claimable{
				TotalUnspentClaim: 300000000,
				Claims: []Claim{
					{Asset: model.NEOAssetID, Index: 0, TxID: "abc", Value: 10, Start: 100, End: 200, Claim: 250000000},
					{Asset: model.NEOAssetID, Index: 1, TxID: "def", Value: 2, Start: 150, End: 210, Claim: 50000000},
				},
			},
		}),
	})

	client := NewClient("http://unused:1", ts.URL+"/", newTestLogger())
	info, err := client.GetClaimable(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, "3", info.Amount.String())
	assert.True(t, info.HasClaims())
	require.Len(t, info.Claims, 2)
	assert.Equal(t, "abc", info.Claims[0].TxID)
	assert.Equal(t, "2.5", info.Claims[0].Unclaimed.String())
	assert.Equal(t, int64(200), info.Claims[0].EndHeight)
}

func TestGetClaimable_MissingData(t *testing.T) {
	ts := restServer(t, map[string][]byte{
		"/" + testAddress + "/claimablegas": restOK(map[string]interface{}{"address": testAddress}),
	})
	client := NewClient("http://unused:1", ts.URL, newTestLogger())

	_, err := client.GetClaimable(context.Background(), testAddress)
	assert.True(t, IsKind(err, KindMalformedResponse))
}

func TestInvokeScript_SendsHexScript(t *testing.T) {
	script := []byte{0x00, 0xc1, 0x04, 'n', 'a', 'm', 'e'}
	ts := rpcServer(t, func(method string, params []interface{}) []byte {
		assert.Equal(t, "invokescript", method)
		require.Len(t, params, 1)
		assert.Equal(t, hex.EncodeToString(script), params[0])
		return rpcOK(map[string]interface{}{
			"script":       params[0],
			"state":        "HALT, BREAK",
			"gas_consumed": "0.126",
			"stack":        []map[string]interface{}{{"type": "ByteArray", "value": "4e454f"}},
		})
	})

	client := NewClient(ts.URL, "", newTestLogger())
	res, err := client.InvokeScript(context.Background(), script)
	require.NoError(t, err)
	assert.False(t, res.Faulted())
	require.Len(t, res.Stack, 1)
	assert.Equal(t, "ByteArray", res.Stack[0].Type)
}

func TestSendRawTransaction(t *testing.T) {
	tests := []struct {
		name     string
		response []byte
		want     bool
		kind     ErrorKind
	}{
		{"accepted", rpcOK(true), true, ""},
		{"refused", rpcOK(false), false, ""},
		{"non bool", rpcOK("yes"), false, KindMalformedResponse},
		{"node error", rpcError(-500, "Block or transaction already exists"), false, KindMalformedRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := rpcServer(t, func(method string, params []interface{}) []byte {
				assert.Equal(t, "sendrawtransaction", method)
				assert.Equal(t, "d100", params[0])
				return tc.response
			})
			client := NewClient(ts.URL, "", newTestLogger())

			ok, err := client.SendRawTransaction(context.Background(), []byte{0xd1, 0x00})
			if tc.kind != "" {
				assert.True(t, IsKind(err, tc.kind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}
