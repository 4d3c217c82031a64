// Package sigconv converts the MPC signer contract's signature
// representation into the formats each foreign chain requires: RSV for
// EVM, raw 64-byte R||S for Bitcoin and Cosmos, and a low-S-normalized DER
// encoding of that R||S for Bitcoin. ToRaw64 itself does not normalize S.
//
// Grounded on the teacher's plugin/secp256k1/crypto.go DER<->R||S
// shuttling, adapted to the contract's own MPCSignature shape (§3) instead
// of OpenBao's storage format.
package sigconv

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// MPCSignature is the contract-returned signature shape of §3: a
// compressed affine point for the nonce commitment, a scalar s, and a
// recovery id.
type MPCSignature struct {
	BigR struct {
		AffinePoint string // hex-encoded 33-byte compressed point
	}
	S struct {
		Scalar string // 32-byte hex
	}
	RecoveryID byte // 0 or 1
}

// RSVSignature is the {r, s, v} triple EVM signature verification and
// recovery use.
type RSVSignature struct {
	R [32]byte
	S [32]byte
	V byte
}

// Raw64 is the 64-byte R||S signature Bitcoin and Cosmos both consume.
type Raw64 [64]byte

// ToRSV converts a contract MPCSignature to RSV form: r is the compressed
// affine point with its parity byte dropped, s is the scalar unchanged,
// v is the recovery id. This mirrors the contract-specific convention in
// §3 verbatim — the raw r is NOT re-derived from `R.x mod n`.
func ToRSV(sig MPCSignature) (RSVSignature, error) {
	var out RSVSignature

	rBytes, err := hex.DecodeString(sig.BigR.AffinePoint)
	if err != nil {
		return out, fmt.Errorf("sigconv: decode big_r: %w", err)
	}
	if len(rBytes) != 33 {
		return out, fmt.Errorf("sigconv: big_r.affine_point must be 33 bytes, got %d", len(rBytes))
	}
	copy(out.R[:], rBytes[1:]) // drop the parity byte

	sBytes, err := hex.DecodeString(sig.S.Scalar)
	if err != nil {
		return out, fmt.Errorf("sigconv: decode s.scalar: %w", err)
	}
	if len(sBytes) != 32 {
		return out, fmt.Errorf("sigconv: s.scalar must be 32 bytes, got %d", len(sBytes))
	}
	copy(out.S[:], sBytes)

	out.V = sig.RecoveryID
	return out, nil
}

// ToRaw64 converts a contract MPCSignature to the raw R||S form Bitcoin's
// DER encoder and Cosmos's SIGN_MODE_DIRECT signature both start from.
func ToRaw64(sig MPCSignature) (Raw64, error) {
	rsv, err := ToRSV(sig)
	if err != nil {
		return Raw64{}, err
	}
	var raw Raw64
	copy(raw[:32], rsv.R[:])
	copy(raw[32:], rsv.S[:])
	return raw, nil
}

// ToDER converts a raw R||S signature to a low-S-normalized DER encoding,
// as Bitcoin's scriptSig/witness requires.
func ToDER(raw Raw64) ([]byte, error) {
	r := new(btcec.ModNScalar)
	if overflow := r.SetByteSlice(raw[:32]); overflow {
		return nil, fmt.Errorf("sigconv: r overflows curve order")
	}
	s := new(btcec.ModNScalar)
	if overflow := s.SetByteSlice(raw[32:]); overflow {
		return nil, fmt.Errorf("sigconv: s overflows curve order")
	}
	if s.IsOverHalfOrder() {
		s.Negate()
	}

	sig := ecdsa.NewSignature(r, s)
	return sig.Serialize(), nil
}
