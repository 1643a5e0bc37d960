package rpc

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math/big"

	"github.com/emperorhan/neo-wallet-engine/internal/chain/neo"
)

// NEO VM opcodes used by contract invocation scripts.
const (
	opPush0     byte = 0x00
	opPushData1 byte = 0x4c
	opPushData2 byte = 0x4d
	opPushData4 byte = 0x4e
	opPushM1    byte = 0x4f
	opPush1     byte = 0x51
	opAppCall   byte = 0x67
	opPack      byte = 0xc1
)

// ScriptBuilder assembles invocation scripts for invokescript.
type ScriptBuilder struct {
	buf bytes.Buffer
}

func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{}
}

func (b *ScriptBuilder) PushInt(n int64) *ScriptBuilder {
	switch {
	case n == -1:
		b.buf.WriteByte(opPushM1)
	case n == 0:
		b.buf.WriteByte(opPush0)
	case n > 0 && n <= 16:
		b.buf.WriteByte(opPush1 - 1 + byte(n))
	default:
		b.PushBytes(intToLE(big.NewInt(n)))
	}
	return b
}

func (b *ScriptBuilder) PushBytes(data []byte) *ScriptBuilder {
	n := len(data)
	switch {
	case n < int(opPushData1):
		b.buf.WriteByte(byte(n))
	case n <= 0xff:
		b.buf.WriteByte(opPushData1)
		b.buf.WriteByte(byte(n))
	case n <= 0xffff:
		b.buf.WriteByte(opPushData2)
		var l [2]byte
		binary.LittleEndian.PutUint16(l[:], uint16(n))
		b.buf.Write(l[:])
	default:
		b.buf.WriteByte(opPushData4)
		var l [4]byte
		binary.LittleEndian.PutUint32(l[:], uint32(n))
		b.buf.Write(l[:])
	}
	b.buf.Write(data)
	return b
}

func (b *ScriptBuilder) PushString(s string) *ScriptBuilder {
	return b.PushBytes([]byte(s))
}

// EmitAppCall pushes args (last first), packs them into an array, pushes
// the operation name and calls the contract. hashLE is in VM byte order.
func (b *ScriptBuilder) EmitAppCall(hashLE []byte, operation string, args ...[]byte) *ScriptBuilder {
	for i := len(args) - 1; i >= 0; i-- {
		b.PushBytes(args[i])
	}
	b.PushInt(int64(len(args)))
	b.buf.WriteByte(opPack)
	b.PushString(operation)
	b.buf.WriteByte(opAppCall)
	b.buf.Write(hashLE)
	return b
}

func (b *ScriptBuilder) Bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *ScriptBuilder) Hex() string {
	return hex.EncodeToString(b.buf.Bytes())
}

// intToLE encodes n as a minimal little-endian two's complement byte string.
func intToLE(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{}
	}
	if n.Sign() > 0 {
		be := n.Bytes()
		le := neo.Reverse(be)
		if le[len(le)-1]&0x80 != 0 {
			le = append(le, 0x00)
		}
		return le
	}
	// two's complement of a negative value
	size := (n.BitLen() + 8) / 8
	mod := new(big.Int).Lsh(big.NewInt(1), uint(size*8))
	be := new(big.Int).Add(mod, n).Bytes()
	for len(be) < size {
		be = append([]byte{0xff}, be...)
	}
	return neo.Reverse(be)
}

// leToInt decodes a little-endian two's complement byte string.
func leToInt(le []byte) *big.Int {
	if len(le) == 0 {
		return new(big.Int)
	}
	n := new(big.Int).SetBytes(neo.Reverse(le))
	if le[len(le)-1]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(le)*8))
		n.Sub(n, mod)
	}
	return n
}
