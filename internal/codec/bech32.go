package codec

import (
	"strings"

	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
)

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// bech32Polymod and bech32HRPExpand implement the checksum algorithm
// from BIP-173, used for both encoding and decoding.
func bech32Polymod(values []byte) uint32 {
	gen := []uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		b := chk >> 25
		chk = ((chk & 0x1ffffff) << 5) ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (b>>i)&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func bech32HRPExpand(hrp string) []byte {
	result := make([]byte, len(hrp)*2+1)
	for i, c := range hrp {
		result[i] = byte(c >> 5)
		result[i+len(hrp)+1] = byte(c & 31)
	}
	result[len(hrp)] = 0
	return result
}

func bech32CreateChecksum(hrp string, data []byte) []byte {
	values := append(bech32HRPExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := bech32Polymod(values) ^ 1
	checksum := make([]byte, 6)
	for i := 0; i < 6; i++ {
		checksum[i] = byte((mod >> uint(5*(5-i))) & 31)
	}
	return checksum
}

func bech32VerifyChecksum(hrp string, data []byte) bool {
	return bech32Polymod(append(bech32HRPExpand(hrp), data...)) == 1
}

// bech32ConvertBits re-groups a byte slice from fromBits-wide groups
// into toBits-wide groups, as required to move between the 8-bit
// witness program and the 5-bit bech32 data alphabet.
func bech32ConvertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	var result []byte
	maxv := uint32((1 << toBits) - 1)

	for _, b := range data {
		acc = (acc << fromBits) | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			result = append(result, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			result = append(result, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || ((acc<<(toBits-bits))&maxv) != 0 {
		return nil, walleterr.New(walleterr.InvalidEncoding, "invalid bech32 padding")
	}

	return result, nil
}

func bech32Encode(hrp string, data []byte) (string, error) {
	combined := append(data, bech32CreateChecksum(hrp, data)...)
	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, b := range combined {
		if int(b) >= len(bech32Charset) {
			return "", walleterr.New(walleterr.InvalidEncoding, "bech32 data value out of range")
		}
		sb.WriteByte(bech32Charset[b])
	}
	return sb.String(), nil
}

func bech32Decode(s string, expectedHRP string) (hrp string, data []byte, err error) {
	if len(s) < 8 || len(s) > 90 {
		return "", nil, walleterr.New(walleterr.InvalidEncoding, "invalid bech32 string length")
	}
	lower, upper := strings.ToLower(s), strings.ToUpper(s)
	if s != lower && s != upper {
		return "", nil, walleterr.New(walleterr.InvalidEncoding, "bech32 string has mixed case")
	}
	s = lower

	sepPos := strings.LastIndexByte(s, '1')
	if sepPos < 1 || sepPos+7 > len(s) {
		return "", nil, walleterr.New(walleterr.InvalidEncoding, "invalid bech32 separator position")
	}
	hrp = s[:sepPos]
	if expectedHRP != "" && hrp != strings.ToLower(expectedHRP) {
		return "", nil, walleterr.Newf(walleterr.InvalidEncoding, "unexpected bech32 prefix %q", hrp)
	}
	dataStr := s[sepPos+1:]

	data = make([]byte, len(dataStr))
	for i := 0; i < len(dataStr); i++ {
		idx := strings.IndexByte(bech32Charset, dataStr[i])
		if idx < 0 {
			return "", nil, walleterr.New(walleterr.InvalidEncoding, "invalid character in bech32 data")
		}
		data[i] = byte(idx)
	}

	if !bech32VerifyChecksum(hrp, data) {
		return "", nil, walleterr.New(walleterr.InvalidEncoding, "invalid bech32 checksum")
	}
	return hrp, data[:len(data)-6], nil
}

// EncodeBech32Address encodes a 20-byte witness program as a SegWit
// v0 (P2WPKH) bech32 address under the given human-readable prefix.
func EncodeBech32Address(hrp string, program []byte) (string, error) {
	if len(program) != addressPayloadLen {
		return "", walleterr.Newf(walleterr.InvalidEncoding, "bech32 witness program must be %d bytes, got %d", addressPayloadLen, len(program))
	}
	converted, err := bech32ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	data := append([]byte{0}, converted...)
	return bech32Encode(hrp, data)
}

// DecodeBech32Address decodes a SegWit bech32 address, requiring
// witness version 0 and a 20-byte program (P2WPKH only — per spec.md
// §4.1, anything else is InvalidEncoding). If hrp is empty, the
// human-readable prefix is inferred as the substring before the
// last '1'.
func DecodeBech32Address(s string, hrp string) ([]byte, error) {
	_, data, err := bech32Decode(s, hrp)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, walleterr.New(walleterr.InvalidEncoding, "empty bech32 data")
	}
	witnessVersion := data[0]
	program, err := bech32ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, err
	}
	if witnessVersion != 0 || len(program) != addressPayloadLen {
		return nil, walleterr.Newf(walleterr.InvalidEncoding, "unsupported SegWit witness version %d / program length %d", witnessVersion, len(program))
	}
	return program, nil
}
