// Package derive implements the deterministic mapping from a coordinator-chain
// root public key plus a (caller id, path) tuple to a child secp256k1 public
// key, and from that child key to per-chain addresses.
package derive

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for Bitcoin/Cosmos address derivation
	"golang.org/x/crypto/sha3"
)

// EpsilonPrefix is part of the wire contract between this client and the
// signer contract; it MUST NOT change.
const EpsilonPrefix = "near-mpc-recovery v0.1.0 epsilon derivation:"

// Epsilon computes ε = SHA3-256(EpsilonPrefix || caller_id || "," || canonical_path),
// interpreted big-endian and reduced mod the secp256k1 curve order.
func Epsilon(callerID, canonicalPath string) *btcec.ModNScalar {
	msg := fmt.Sprintf("%s%s,%s", EpsilonPrefix, callerID, canonicalPath)
	h := sha3.Sum256([]byte(msg))

	eps := new(btcec.ModNScalar)
	eps.SetByteSlice(h[:]) // overflow bit discarded: reduction mod n is intentional
	return eps
}

// DeriveChildPubKey computes Q = root + ε·G where ε = Epsilon(callerID, canonicalPath).
// Returns ErrIdentityPoint if the derived point is the point at infinity.
func DeriveChildPubKey(root *btcec.PublicKey, callerID, canonicalPath string) (*btcec.PublicKey, error) {
	eps := Epsilon(callerID, canonicalPath)

	var epsPoint btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(eps, &epsPoint)

	var rootPoint btcec.JacobianPoint
	root.AsJacobian(&rootPoint)

	var sum btcec.JacobianPoint
	btcec.AddNonConst(&rootPoint, &epsPoint, &sum)

	sum.ToAffine()
	if sum.X.IsZero() && sum.Y.IsZero() {
		return nil, ErrIdentityPoint
	}

	return btcec.NewPublicKey(&sum.X, &sum.Y), nil
}

// ErrIdentityPoint is returned when epsilon derivation produces the point at
// infinity. Astronomically unlikely; treated as a hard failure (§7
// DerivationFailed), never silently retried.
var ErrIdentityPoint = fmt.Errorf("derive: child public key is the identity point")

// EVMAddress derives the 20-byte Ethereum-style address of a child public
// key: Keccak-256 of the uncompressed point with the 0x04 prefix stripped,
// last 20 bytes.
func EVMAddress(child *btcec.PublicKey) [20]byte {
	uncompressed := child.SerializeUncompressed()
	h := sha3.NewLegacyKeccak256()
	h.Write(uncompressed[1:])
	sum := h.Sum(nil)

	var addr [20]byte
	copy(addr[:], sum[12:])
	return addr
}

// keccak256 computes the Keccak-256 digest EVMAddressHex uses for its
// EIP-55 checksum.
func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Hash160 computes RIPEMD-160(SHA-256(data)), the address-hashing step
// shared by Bitcoin P2WPKH and Cosmos bech32 addresses.
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	rip := ripemd160.New()
	rip.Write(sha[:])
	return rip.Sum(nil)
}
