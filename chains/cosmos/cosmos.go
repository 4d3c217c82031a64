// Package cosmos implements the Cosmos SDK transaction assembler of §4.6:
// account/sequence lookup against a chain registry, proto TxBody/AuthInfo
// construction, SIGN_MODE_DIRECT signing, and broadcast.
//
// Grounded on the teacher's sdk-go/celestia.go (CelestiaKeyring, itself a
// cosmos-sdk keyring.Keyring backed by a remote signer) for the
// secp256k1/bech32/keyring wiring, generalized here from one hardcoded
// chain (Celestia) to the registry-keyed multi-chain model §4.6 requires.
package cosmos

import (
	"context"
	"crypto/sha256"
	"fmt"

	"cosmossdk.io/math"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/tx"
	gogoproto "github.com/cosmos/gogoproto/proto"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chainsig-network/chainsig-go/chains"
	"github.com/chainsig-network/chainsig-go/internal/derive"
)

// ChainParams is one chain registry entry, keyed by chain_id (§4.6).
type ChainParams struct {
	HRP          string
	NativeDenom  string
	RESTURL      string
	GasPrice     math.LegacyDec
	Decimals     int
}

// Registry resolves a chain_id to its ChainParams. Missing entry ⇒
// UnsupportedChain (§4.6).
type Registry interface {
	Lookup(chainID string) (ChainParams, bool)
}

// MapRegistry is the default in-memory Registry.
type MapRegistry map[string]ChainParams

func (m MapRegistry) Lookup(chainID string) (ChainParams, bool) {
	p, ok := m[chainID]
	return p, ok
}

// Account is the on-chain account state fetched for a sign (§4.6 step 1).
type Account struct {
	AccountNumber uint64
	Sequence      uint64
}

// Provider is the subset of the Cosmos REST surface this assembler needs (§6).
type Provider interface {
	Account(ctx context.Context, restURL, address string) (Account, error)
	Broadcast(ctx context.Context, restURL string, txBytes []byte) (txHash string, code uint32, rawLog string, err error)
}

// TxRequest is the caller-supplied transaction intent (§4.6).
type TxRequest struct {
	ChainID           string
	Address           string
	CompressedPubKey  []byte
	Messages          []sdk.Msg
	Memo              string
	Gas               *uint64
}

// UnsignedTx carries the proto-encoded body/auth_info bytes plus the
// chain metadata needed to build the SignDoc and, later, TxRaw (§3).
type UnsignedTx struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	ChainID       string
	AccountNumber uint64
	RESTURL       string
}

func (UnsignedTx) chainFamily() string { return "cosmos" }

// DefaultGasLimit is used when the caller doesn't supply one (§4.6 step 3).
const DefaultGasLimit = uint64(200_000)

// Assembler implements chains.Chain[TxRequest] for Cosmos SDK chains.
type Assembler struct {
	Provider Provider
	Registry Registry
	Root     *btcec.PublicKey
}

var _ chains.Chain[TxRequest] = (*Assembler)(nil)

// DeriveAddressAndPubKey exists only to satisfy chains.Chain. The bech32
// HRP depends on a chain_id, which neither this method nor the Assembler
// carries, so it always fails with ErrProtocolInvariantViolated; callers
// derive a Cosmos address with DeriveAddressForChain.
func (a *Assembler) DeriveAddressAndPubKey(ctx context.Context, callerID, path string) (string, []byte, error) {
	return "", nil, fmt.Errorf("cosmos: %w: use DeriveAddressForChain", chains.ErrProtocolInvariantViolated)
}

// DeriveAddressForChain derives the bech32 address for a specific chain_id's HRP.
func (a *Assembler) DeriveAddressForChain(ctx context.Context, chainID, callerID, path string) (string, []byte, error) {
	params, ok := a.Registry.Lookup(chainID)
	if !ok {
		return "", nil, fmt.Errorf("cosmos: %w: %s", chains.ErrUnsupportedChain, chainID)
	}
	child, err := derive.DeriveChildPubKey(a.Root, callerID, path)
	if err != nil {
		return "", nil, fmt.Errorf("cosmos: %w", err)
	}
	addr, err := derive.CosmosBech32Address(child, params.HRP)
	if err != nil {
		return "", nil, fmt.Errorf("cosmos: %w", err)
	}
	return addr, child.SerializeCompressed(), nil
}

// PreparePayload fetches the account, normalizes message sender fields,
// computes the fee, encodes TxBody/AuthInfo, and returns the single
// SHA-256(SignDoc) sighash payload (§4.6 steps 1-5).
func (a *Assembler) PreparePayload(ctx context.Context, req TxRequest) (chains.UnsignedTx, []chains.MPCPayload, error) {
	params, ok := a.Registry.Lookup(req.ChainID)
	if !ok {
		return nil, nil, fmt.Errorf("cosmos: %w: %s", chains.ErrUnsupportedChain, req.ChainID)
	}

	account, err := a.Provider.Account(ctx, params.RESTURL, req.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("cosmos: %w: %v", chains.ErrAccountNotFound, err)
	}

	normalizeFromAddress(req.Messages, req.Address)

	gasLimit := DefaultGasLimit
	if req.Gas != nil {
		gasLimit = *req.Gas
	}
	feeAmount := computeFee(params.GasPrice, gasLimit)

	pubKey, err := pubKeyFromCompressed(req.CompressedPubKey)
	if err != nil {
		return nil, nil, fmt.Errorf("cosmos: %w", err)
	}

	bodyBytes, err := encodeTxBody(req.Messages, req.Memo)
	if err != nil {
		return nil, nil, fmt.Errorf("cosmos: encode TxBody: %w", err)
	}

	authInfoBytes, err := encodeAuthInfo(pubKey, account.Sequence, gasLimit, feeAmount, params.NativeDenom)
	if err != nil {
		return nil, nil, fmt.Errorf("cosmos: encode AuthInfo: %w", err)
	}

	signDoc := tx.SignDoc{
		BodyBytes:     bodyBytes,
		AuthInfoBytes: authInfoBytes,
		ChainId:       req.ChainID,
		AccountNumber: account.AccountNumber,
	}
	signDocBytes, err := gogoproto.Marshal(&signDoc)
	if err != nil {
		return nil, nil, fmt.Errorf("cosmos: encode SignDoc: %w", err)
	}
	sighash := sha256.Sum256(signDocBytes)

	unsigned := UnsignedTx{
		BodyBytes:     bodyBytes,
		AuthInfoBytes: authInfoBytes,
		ChainID:       req.ChainID,
		AccountNumber: account.AccountNumber,
		RESTURL:       params.RESTURL,
	}
	return unsigned, []chains.MPCPayload{{Index: 0, Payload: sighash}}, nil
}

// AttachSignaturesAndBroadcast serializes TxRaw with the MPC's raw R||S
// signature and broadcasts it via BROADCAST_MODE_SYNC (§4.6 step 6).
func (a *Assembler) AttachSignaturesAndBroadcast(ctx context.Context, utx chains.UnsignedTx, signatures map[uint32]chains.Signature) (string, error) {
	unsigned, ok := utx.(UnsignedTx)
	if !ok {
		return "", fmt.Errorf("cosmos: %w", chains.ErrProtocolInvariantViolated)
	}
	sig, ok := signatures[0]
	if !ok {
		return "", fmt.Errorf("cosmos: missing signature for payload 0")
	}

	txRaw := tx.TxRaw{
		BodyBytes:     unsigned.BodyBytes,
		AuthInfoBytes: unsigned.AuthInfoBytes,
		Signatures:    [][]byte{sig.RS[:]},
	}
	txBytes, err := gogoproto.Marshal(&txRaw)
	if err != nil {
		return "", fmt.Errorf("cosmos: encode TxRaw: %w", err)
	}

	txHash, code, rawLog, err := a.Provider.Broadcast(ctx, unsigned.RESTURL, txBytes)
	if err != nil {
		return "", fmt.Errorf("cosmos: broadcast: %w", err)
	}
	if code != 0 {
		return "", &chains.BroadcastRejectedError{Chain: "cosmos", Code: int(code), Message: rawLog}
	}
	return txHash, nil
}

// GetBalance exists only to satisfy chains.Chain and always fails with
// ErrProtocolInvariantViolated: it takes no chain_id, and this assembler
// does not query balances (Provider has no balances call).
func (a *Assembler) GetBalance(ctx context.Context, address string) (string, error) {
	return "", fmt.Errorf("cosmos: %w: GetBalance requires a chain_id, use a chain-specific accessor", chains.ErrProtocolInvariantViolated)
}

func pubKeyFromCompressed(compressed []byte) (cryptotypes.PubKey, error) {
	pub, err := btcec.ParsePubKey(compressed)
	if err != nil {
		return nil, fmt.Errorf("parse compressed pubkey: %w", err)
	}
	return newSecp256k1PubKey(pub.SerializeCompressed()), nil
}

// computeFee implements §4.6 step 3: fee_amount = ceil(gas_price * gas_limit).
func computeFee(gasPrice math.LegacyDec, gasLimit uint64) math.Int {
	return gasPrice.MulInt64(int64(gasLimit)).Ceil().TruncateInt()
}

// normalizeFromAddress implements §4.6 step 2 and preserves the
// narrow-rule behavior flagged in §9: only messages with an empty
// `fromAddress`-shaped field are touched; `delegatorAddress`/`granter`
// and similar sender fields in other message types are NOT normalized,
// by design — this mirrors a documented, not silently fixed, source quirk.
func normalizeFromAddress(msgs []sdk.Msg, address string) {
	for _, msg := range msgs {
		if setter, ok := msg.(interface{ SetFromAddressIfEmpty(string) }); ok {
			setter.SetFromAddressIfEmpty(address)
		}
	}
}
