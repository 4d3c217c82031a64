// Package evm implements the EVM transaction assembler of §4.4: EIP-1559
// transaction construction, keccak256 sighash extraction, signature
// attachment, and broadcast via eth_sendRawTransaction.
//
// The teacher (control-plane/internal/ethereum) hand-rolls RLP encoding
// and its own UnsignedTransaction/SignedTransaction types; this package
// instead wires go-ethereum's own core/types and crypto packages, a
// direct dependency of the teacher's control-plane, per SPEC_FULL.md §11.
// The teacher's hand-rolled encoder is not part of this module.
package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/chainsig-network/chainsig-go/chains"
	"github.com/chainsig-network/chainsig-go/internal/derive"
)

// DefaultMaxFeePerGas and DefaultMaxPriorityFeePerGas are the fallback
// fee values preserved from §4.4 and flagged in §9 as a documented,
// non-silently-fixed default.
var (
	DefaultMaxFeePerGas         = big.NewInt(10_000_000_000) // 10 gwei
	DefaultMaxPriorityFeePerGas = big.NewInt(10_000_000_000)
)

// Provider is the subset of Ethereum JSON-RPC this assembler needs (§6).
type Provider interface {
	ChainID(ctx context.Context) (*big.Int, error)
	NonceAt(ctx context.Context, address common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg CallMsg) (uint64, error)
	SendRawTransaction(ctx context.Context, rawTx []byte) (string, error)
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)
}

// CallMsg mirrors ethereum.CallMsg's fields this assembler populates for
// gas estimation, avoiding a direct dependency on the full ethereum
// interface package.
type CallMsg struct {
	From  common.Address
	To    *common.Address
	Value *big.Int
	Data  []byte
}

// TxRequest is the caller-supplied transaction intent (§4.4).
type TxRequest struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte

	Nonce                *uint64
	GasLimit             *uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// UnsignedTx wraps a go-ethereum DynamicFeeTx awaiting a signature.
type UnsignedTx struct {
	ChainID *big.Int
	Inner   *gethtypes.DynamicFeeTx
}

func (UnsignedTx) chainFamily() string { return "evm" }

// Assembler implements chains.Chain[TxRequest] for EVM-family chains. Root
// is the signer contract's published root public key; every address and
// child key is derived from it via internal/derive.
type Assembler struct {
	Provider Provider
	Root     *btcec.PublicKey
}

var _ chains.Chain[TxRequest] = (*Assembler)(nil)

// DeriveAddressAndPubKey derives the EVM address and compressed child
// public key for (callerID, path) via internal/derive.
func (a *Assembler) DeriveAddressAndPubKey(ctx context.Context, callerID, path string) (string, []byte, error) {
	child, err := derive.DeriveChildPubKey(a.Root, callerID, path)
	if err != nil {
		return "", nil, fmt.Errorf("evm: %w", err)
	}
	addr := derive.EVMAddress(child)
	return derive.EVMAddressHex(addr), child.SerializeCompressed(), nil
}

// PreparePayload builds an EIP-1559 DynamicFeeTx, filling in nonce/fees
// from the provider when the caller omitted them, and returns the single
// keccak256 sighash payload the MPC must sign (§4.4).
func (a *Assembler) PreparePayload(ctx context.Context, req TxRequest) (chains.UnsignedTx, []chains.MPCPayload, error) {
	chainID, err := a.Provider.ChainID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("evm: %w: %v", chains.ErrProviderUnreachable, err)
	}

	var nonce uint64
	if req.Nonce != nil {
		nonce = *req.Nonce
	} else {
		nonce, err = a.Provider.NonceAt(ctx, req.From)
		if err != nil {
			return nil, nil, fmt.Errorf("evm: fetch nonce: %w", err)
		}
	}

	maxFeePerGas := req.MaxFeePerGas
	if maxFeePerGas == nil {
		if fetched, err := a.Provider.SuggestGasPrice(ctx); err == nil && fetched != nil {
			maxFeePerGas = fetched
		} else {
			maxFeePerGas = DefaultMaxFeePerGas // §9: documented fallback, not silently fixed
		}
	}
	maxPriorityFeePerGas := req.MaxPriorityFeePerGas
	if maxPriorityFeePerGas == nil {
		if fetched, err := a.Provider.SuggestGasTipCap(ctx); err == nil && fetched != nil {
			maxPriorityFeePerGas = fetched
		} else {
			maxPriorityFeePerGas = DefaultMaxPriorityFeePerGas
		}
	}

	gasLimit := uint64(21000)
	if req.GasLimit != nil {
		gasLimit = *req.GasLimit
	} else if len(req.Data) > 0 {
		estimated, err := a.Provider.EstimateGas(ctx, CallMsg{From: req.From, To: &req.To, Value: req.Value, Data: req.Data})
		if err == nil && estimated > 0 {
			gasLimit = estimated
		}
	}

	inner := &gethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: maxPriorityFeePerGas,
		GasFeeCap: maxFeePerGas,
		Gas:       gasLimit,
		To:        &req.To,
		Value:     valueOrZero(req.Value),
		Data:      req.Data,
	}

	unsigned := UnsignedTx{ChainID: chainID, Inner: inner}

	signer := gethtypes.NewLondonSigner(chainID)
	sighash := signer.Hash(gethtypes.NewTx(inner))

	var payload [32]byte
	copy(payload[:], sighash[:])

	return unsigned, []chains.MPCPayload{{Index: 0, Payload: payload}}, nil
}

// AttachSignaturesAndBroadcast rebuilds the signed RLP with the MPC's
// signature and broadcasts it via eth_sendRawTransaction (§4.4).
func (a *Assembler) AttachSignaturesAndBroadcast(ctx context.Context, tx chains.UnsignedTx, signatures map[uint32]chains.Signature) (string, error) {
	unsigned, ok := tx.(UnsignedTx)
	if !ok {
		return "", fmt.Errorf("evm: %w", chains.ErrProtocolInvariantViolated)
	}
	sig, ok := signatures[0]
	if !ok {
		return "", fmt.Errorf("evm: missing signature for payload 0")
	}

	ethSig := make([]byte, 65)
	copy(ethSig[:32], sig.RS[:32])
	copy(ethSig[32:64], sig.RS[32:])
	ethSig[64] = sig.V

	signer := gethtypes.NewLondonSigner(unsigned.ChainID)
	signedTx, err := gethtypes.NewTx(unsigned.Inner).WithSignature(signer, ethSig)
	if err != nil {
		return "", fmt.Errorf("evm: attach signature: %w", err)
	}

	rawBytes, err := signedTx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("evm: encode signed tx: %w", err)
	}

	txHash, err := a.Provider.SendRawTransaction(ctx, rawBytes)
	if err != nil {
		return "", fmt.Errorf("evm: broadcast: %w", err)
	}
	return txHash, nil
}

// GetBalance returns the address's native balance in wei, as a decimal string.
func (a *Assembler) GetBalance(ctx context.Context, address string) (string, error) {
	balance, err := a.Provider.BalanceAt(ctx, common.HexToAddress(address))
	if err != nil {
		return "", fmt.Errorf("evm: %w: %v", chains.ErrProviderUnreachable, err)
	}
	return balance.String(), nil
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
