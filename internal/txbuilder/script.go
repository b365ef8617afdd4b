// Package txbuilder assembles, funds, and (via the coin daemon) signs
// and broadcasts Bitcoin-family UTXO transactions.
package txbuilder

import (
	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
)

const pubKeyHashLen = 20

// Bitcoin script opcodes used by the three output types this system
// produces.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqualVerify = 0x88
	opCheckSig    = 0xac
	opEqual       = 0x87
	op0           = 0x00
	opPushData20  = 0x14
)

// ScriptFor assembles the output script for a pubkeyhash and output
// type: P2PKH -> `DUP HASH160 <20> EQUALVERIFY CHECKSIG`,
// P2SH -> `HASH160 <20> EQUAL`, P2WPKH -> `OP_0 <20>`.
func ScriptFor(pubKeyHash []byte, outType coin.TxOutType) ([]byte, error) {
	if len(pubKeyHash) != pubKeyHashLen {
		return nil, walleterr.Newf(walleterr.InvalidHashException, "pubkeyhash must be %d bytes, got %d", pubKeyHashLen, len(pubKeyHash))
	}
	switch outType {
	case coin.P2PKH:
		script := make([]byte, 0, 25)
		script = append(script, opDup, opHash160, opPushData20)
		script = append(script, pubKeyHash...)
		script = append(script, opEqualVerify, opCheckSig)
		return script, nil
	case coin.P2SH:
		script := make([]byte, 0, 23)
		script = append(script, opHash160, opPushData20)
		script = append(script, pubKeyHash...)
		script = append(script, opEqual)
		return script, nil
	case coin.P2WPKH:
		script := make([]byte, 0, 22)
		script = append(script, op0, opPushData20)
		script = append(script, pubKeyHash...)
		return script, nil
	default:
		return nil, walleterr.Newf(walleterr.InvalidTransactionOutputType, "unsupported output type %q", outType)
	}
}

// RequiresWitness reports whether spending a UTXO of this type
// requires a witness section on the transaction.
func RequiresWitness(outType coin.TxOutType) bool {
	return outType == coin.P2WPKH
}
