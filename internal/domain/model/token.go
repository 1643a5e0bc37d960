package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Native asset ids on the NEO legacy chain.
const (
	NEOAssetID = "0xc56f33fc6ecfcd0c225c4ab356fee59390af8560be0e930faebe74a6daff7c9b"
	GASAssetID = "0x602c79718b16e442de58778e148d0b1084e3b2dffd5de6b7b16cee7969282de7"
)

const (
	NEOSymbol = "NEO"
	GASSymbol = "GAS"

	neoDecimals = 0
	gasDecimals = 8
)

// Asset is a single balance line. Amount is always in whole units of the
// asset, already scaled by Decimals.
type Asset struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Symbol   string          `json:"symbol"`
	Decimals int32           `json:"decimals"`
	Amount   decimal.Decimal `json:"amount"`
	Kind     AssetKind       `json:"kind"`
}

func NEO(amount decimal.Decimal) Asset {
	return Asset{
		ID:       NEOAssetID,
		Name:     NEOSymbol,
		Symbol:   NEOSymbol,
		Decimals: neoDecimals,
		Amount:   amount,
		Kind:     AssetKindNative,
	}
}

func GAS(amount decimal.Decimal) Asset {
	return Asset{
		ID:       GASAssetID,
		Name:     GASSymbol,
		Symbol:   GASSymbol,
		Decimals: gasDecimals,
		Amount:   amount,
		Kind:     AssetKindNative,
	}
}

// IsNativeID reports whether id names a chain-issued asset rather than a
// NEP-5 contract. Native ids carry a 0x prefix, contract hashes do not.
func IsNativeID(id string) bool {
	return strings.HasPrefix(id, "0x")
}

// WithAmount returns a copy of a with the amount replaced.
func (a Asset) WithAmount(amount decimal.Decimal) Asset {
	a.Amount = amount
	return a
}

func (a Asset) IsZero() bool {
	return a.Amount.IsZero()
}

// Equal compares metadata exactly and amounts numerically, so 5 and 5.00
// are considered equal.
func (a Asset) Equal(o Asset) bool {
	return a.ID == o.ID &&
		a.Name == o.Name &&
		a.Symbol == o.Symbol &&
		a.Decimals == o.Decimals &&
		a.Kind == o.Kind &&
		a.Amount.Equal(o.Amount)
}

// TokenInfo is the immutable metadata of a NEP-5 contract.
type TokenInfo struct {
	ScriptHash  string          `json:"script_hash"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Decimals    int32           `json:"decimals"`
	TotalSupply decimal.Decimal `json:"total_supply"`
}

// Asset builds a balance line for the token.
func (t TokenInfo) Asset(amount decimal.Decimal) Asset {
	return Asset{
		ID:       t.ScriptHash,
		Name:     t.Name,
		Symbol:   t.Symbol,
		Decimals: t.Decimals,
		Amount:   amount,
		Kind:     AssetKindNEP5,
	}
}
