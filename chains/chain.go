// Package chains defines the capability interface every per-chain
// transaction assembler implements (§9 "Runtime polymorphism across
// chains"), and the tagged-sum request/unsigned-tx types each
// implementation specializes.
package chains

import "context"

// UnsignedTx is implemented by each chain family's unsigned-transaction
// type (EVM's, Bitcoin's, Cosmos's). It exists only to let callers hold a
// chain-agnostic handle between PreparePayload and AttachSignaturesAndBroadcast.
type UnsignedTx interface {
	chainFamily() string
}

// MPCPayload is one sighash a caller must route through the MPC signing
// client, tagged with the position its resulting signature belongs at
// (§3). A transaction may require more than one (Bitcoin: one per input).
type MPCPayload struct {
	Index   uint32
	Payload [32]byte
}

// Chain is the capability trait of §9: derive an address, prepare an
// unsigned transaction and its sighash payloads, and reconstruct a
// broadcast-ready signed transaction once the MPC has produced
// signatures.
type Chain[Req any] interface {
	DeriveAddressAndPubKey(ctx context.Context, callerID, path string) (address string, compressedPubKey []byte, err error)
	PreparePayload(ctx context.Context, req Req) (UnsignedTx, []MPCPayload, error)
	AttachSignaturesAndBroadcast(ctx context.Context, tx UnsignedTx, signatures map[uint32]Signature) (txHash string, err error)
	GetBalance(ctx context.Context, address string) (string, error)
}

// Raw64 is the 64-byte R||S signature every assembler consumes, after
// sigconv.ToRaw64 has peeled it off the contract's MPCSignature shape.
type Raw64 = [64]byte

// Signature pairs a Raw64 with the contract's recovery id. Bitcoin and
// Cosmos assemblers only need RS; the EVM assembler also needs V to
// compute yParity (§4.4).
type Signature struct {
	RS Raw64
	V  byte
}
