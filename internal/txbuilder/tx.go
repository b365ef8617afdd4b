package txbuilder

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/shopspring/decimal"
)

// Satoshis is the number of smallest units per whole coin, used to
// convert decimal amounts to the little-endian integer encoding
// Bitcoin-family wire formats require.
const Satoshis = 100_000_000

// UTXO is a candidate input: an unspent output this account controls.
type UTXO struct {
	TxID       string
	Vout       uint32
	Amount     decimal.Decimal
	PubKeyHash []byte
	ScriptType coin.TxOutType
}

// Output is a transaction output to be created.
type Output struct {
	PubKeyHash []byte
	ScriptType coin.TxOutType
	Amount     decimal.Decimal
}

// Tx is an unsigned Bitcoin-family transaction under construction.
type Tx struct {
	Inputs  []UTXO
	Outputs []Output
}

// TotalIn sums the amounts of every input.
func (t *Tx) TotalIn() decimal.Decimal {
	total := decimal.Zero
	for _, in := range t.Inputs {
		total = total.Add(in.Amount)
	}
	return total
}

// TotalOut sums the amounts of every output.
func (t *Tx) TotalOut() decimal.Decimal {
	total := decimal.Zero
	for _, out := range t.Outputs {
		total = total.Add(out.Amount)
	}
	return total
}

// HasWitnessInput reports whether any selected input requires a
// witness section.
func (t *Tx) HasWitnessInput() bool {
	for _, in := range t.Inputs {
		if RequiresWitness(in.ScriptType) {
			return true
		}
	}
	return false
}

func amountToSatoshis(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(Satoshis)).Floor().IntPart()
}

func putVarint(buf *bytes.Buffer, n uint64) {
	switch {
	case n < 0xfd:
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(0xfd)
		binary.Write(buf, binary.LittleEndian, uint16(n))
	case n <= 0xffffffff:
		buf.WriteByte(0xfe)
		binary.Write(buf, binary.LittleEndian, uint32(n))
	default:
		buf.WriteByte(0xff)
		binary.Write(buf, binary.LittleEndian, n)
	}
}

// RawBytes serializes the unsigned transaction in Bitcoin wire format:
// version 2, locktime 0, empty scriptSigs on every input (signing is
// delegated to the coin daemon, which fills these in).
func (t *Tx) RawBytes() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(2)) // version

	putVarint(&buf, uint64(len(t.Inputs)))
	for _, in := range t.Inputs {
		txidBytes, _ := hex.DecodeString(in.TxID)
		// Wire format stores the txid byte-reversed.
		reversed := make([]byte, len(txidBytes))
		for i, b := range txidBytes {
			reversed[len(txidBytes)-1-i] = b
		}
		buf.Write(reversed)
		binary.Write(&buf, binary.LittleEndian, in.Vout)
		putVarint(&buf, 0) // empty scriptSig, filled in by the daemon on signing
		binary.Write(&buf, binary.LittleEndian, uint32(0xffffffff))
	}

	putVarint(&buf, uint64(len(t.Outputs)))
	for _, out := range t.Outputs {
		script, err := ScriptFor(out.PubKeyHash, out.ScriptType)
		if err != nil {
			// ScriptFor rejects only a pubkeyhash that is not 20 bytes
			// or an unknown output type. RawBytes has no error return,
			// so such an output panics here (and in EstimatedSize).
			panic(err)
		}
		binary.Write(&buf, binary.LittleEndian, amountToSatoshis(out.Amount))
		putVarint(&buf, uint64(len(script)))
		buf.Write(script)
	}

	binary.Write(&buf, binary.LittleEndian, uint32(0)) // locktime
	return buf.Bytes()
}

// RawHex returns RawBytes hex-encoded, the form the coin daemon's
// signrawtransactionwithkey RPC expects.
func (t *Tx) RawHex() string {
	return hex.EncodeToString(t.RawBytes())
}

const emptyInputLen = 32 + 4 + 1 + 4 // txid + vout + empty scriptSig varint + sequence

// perTypeVsize is the heuristic total-input-size estimate for each
// supported script type, per spec: P2PKH = 149, P2WPKH = 68.
var perTypeVsize = map[coin.TxOutType]int{
	coin.P2PKH:  149,
	coin.P2WPKH: 68,
}

// EstimatedSize returns the estimated signed transaction size: the
// raw (empty-scriptSig) serialized length, plus 2 bytes if any input
// needs a witness section, plus each input's marginal signed-script
// contribution (vsize_for_type - len(empty_input)).
func (t *Tx) EstimatedSize() int {
	size := len(t.RawBytes())
	if t.HasWitnessInput() {
		size += 2
	}
	for _, in := range t.Inputs {
		vsize, ok := perTypeVsize[in.ScriptType]
		if !ok {
			vsize = perTypeVsize[coin.P2PKH]
		}
		size += vsize - emptyInputLen
	}
	return size
}
