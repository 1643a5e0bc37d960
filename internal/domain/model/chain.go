package model

type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkPrivate Network = "privatenet"
)

func (n Network) String() string {
	return string(n)
}

// ParseNetwork accepts the canonical names plus the short aliases used in
// wallet settings ("main", "test", "private").
func ParseNetwork(s string) (Network, bool) {
	switch s {
	case "mainnet", "main":
		return NetworkMainnet, true
	case "testnet", "test":
		return NetworkTestnet, true
	case "privatenet", "private":
		return NetworkPrivate, true
	}
	return "", false
}

type AssetKind string

const (
	AssetKindNative AssetKind = "NATIVE"
	AssetKindNEP5   AssetKind = "NEP5"
)

type AddressSource string

const (
	AddressSourceStore AddressSource = "store"
	AddressSourceEnv   AddressSource = "env"
)
