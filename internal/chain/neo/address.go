// Package neo holds NEO legacy chain primitives shared by the RPC client and
// the balance engine.
package neo

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// AddressVersion is the base58check version byte of standard NEO addresses.
const AddressVersion byte = 0x17

const scriptHashLen = 20

var ErrInvalidAddress = errors.New("invalid neo address")

// DecodeAddress validates the base58check checksum and version and returns
// the 20-byte script hash in the little-endian order the VM uses.
func DecodeAddress(address string) ([]byte, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, address, err)
	}
	if version != AddressVersion {
		return nil, fmt.Errorf("%w: %s: version 0x%02x", ErrInvalidAddress, address, version)
	}
	if len(payload) != scriptHashLen {
		return nil, fmt.Errorf("%w: %s: payload length %d", ErrInvalidAddress, address, len(payload))
	}
	return payload, nil
}

func ValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

// ScriptHash returns the big-endian hex script hash of address, the form
// explorers display.
func ScriptHash(address string) (string, error) {
	payload, err := DecodeAddress(address)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(Reverse(payload)), nil
}

// EncodeAddress is the inverse of DecodeAddress.
func EncodeAddress(scriptHashLE []byte) (string, error) {
	if len(scriptHashLE) != scriptHashLen {
		return "", fmt.Errorf("script hash length %d", len(scriptHashLE))
	}
	return base58.CheckEncode(scriptHashLE, AddressVersion), nil
}

// ContractHashLE parses a big-endian contract script hash, with or without
// a 0x prefix, into VM byte order.
func ContractHashLE(scriptHash string) ([]byte, error) {
	if len(scriptHash) > 2 && scriptHash[:2] == "0x" {
		scriptHash = scriptHash[2:]
	}
	raw, err := hex.DecodeString(scriptHash)
	if err != nil {
		return nil, fmt.Errorf("decode contract hash %q: %w", scriptHash, err)
	}
	if len(raw) != scriptHashLen {
		return nil, fmt.Errorf("contract hash %q: length %d", scriptHash, len(raw))
	}
	return Reverse(raw), nil
}

// Reverse returns a reversed copy of b.
func Reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}
