package derive

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Bitcoin network HRPs, per BIP-173.
const (
	HRPBitcoinMainnet = "bc"
	HRPBitcoinTestnet = "tb"
	HRPBitcoinRegtest = "bcrt"
)

// BitcoinP2WPKHAddress encodes the compressed child public key as a witness
// v0 bech32 P2WPKH address for the given network HRP (bc/tb/bcrt).
func BitcoinP2WPKHAddress(child *btcec.PublicKey, hrp string) (string, error) {
	program := Hash160(child.SerializeCompressed())
	return encodeSegwitAddress(hrp, 0, program)
}

// encodeSegwitAddress implements the BIP-173 segwit address encoding: the
// witness version is prepended to the 5-bit-converted program and the whole
// thing is bech32-encoded with the given HRP.
func encodeSegwitAddress(hrp string, witnessVersion byte, program []byte) (string, error) {
	converted, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("derive: convert witness program bits: %w", err)
	}
	data := make([]byte, 0, len(converted)+1)
	data = append(data, witnessVersion)
	data = append(data, converted...)

	addr, err := bech32.Encode(hrp, data)
	if err != nil {
		return "", fmt.Errorf("derive: bech32 encode: %w", err)
	}
	return addr, nil
}

// CosmosBech32Address encodes the compressed child public key's Hash160 as a
// plain bech32 address under the chain-specific HRP (e.g. "cosmos", "osmo").
func CosmosBech32Address(child *btcec.PublicKey, hrp string) (string, error) {
	raw := Hash160(child.SerializeCompressed())
	converted, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("derive: convert address bits: %w", err)
	}
	addr, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("derive: bech32 encode: %w", err)
	}
	return addr, nil
}

// EVMAddressHex formats a 20-byte address with the EIP-55 mixed-case
// checksum, grounded on the teacher's formatEthereumAddress.
func EVMAddressHex(addr [20]byte) string {
	const hexDigits = "0123456789abcdef"
	hexStr := make([]byte, 40)
	for i, b := range addr {
		hexStr[i*2] = hexDigits[b>>4]
		hexStr[i*2+1] = hexDigits[b&0x0f]
	}

	h := keccak256(hexStr)

	out := make([]byte, 42)
	out[0], out[1] = '0', 'x'
	for i, c := range hexStr {
		if c >= 'a' && c <= 'f' {
			// nibble i's hash bit selects upper-case
			byteIdx := i / 2
			var nibble byte
			if i%2 == 0 {
				nibble = h[byteIdx] >> 4
			} else {
				nibble = h[byteIdx] & 0x0f
			}
			if nibble >= 8 {
				out[i+2] = c - ('a' - 'A')
				continue
			}
		}
		out[i+2] = byte(c)
	}
	return string(out)
}
