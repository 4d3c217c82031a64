// Package bitcoin implements the P2WPKH-only Bitcoin transaction
// assembler of §4.5: UTXO selection, PSBT assembly, direct BIP-143
// sighash computation, signature attachment, PSBT finalization, and
// broadcast.
//
// Grounded on the pack's lnd/taproot-assets PSBT signer files
// (btcutil/psbt, txscript.NewTxSigHashes/CalcWitnessSigHash,
// wire/chaincfg) for the library surface, and on §9's explicit
// replacement of the source's mock-signer trick: sighashes are computed
// directly from PSBT fields here, no fake signer involved.
package bitcoin

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/chainsig-network/chainsig-go/chains"
	"github.com/chainsig-network/chainsig-go/internal/derive"
	"github.com/chainsig-network/chainsig-go/sigconv"
)

// UTXO is one unspent output fetched from the chain provider (§6).
type UTXO struct {
	TxID  chainhash.Hash
	Vout  uint32
	Value int64 // satoshis
}

// Output is a transaction output, either caller-supplied or produced by
// coin selection (a change output).
type Output struct {
	Address string
	Value   int64 // satoshis
}

// FeeRate is the provider's /v1/fees/recommended response (§6), sat/vB.
type FeeRate struct {
	FastestFee  int64
	HalfHourFee int64
	HourFee     int64
	EconomyFee  int64
	MinimumFee  int64
}

// Provider is the subset of the Esplora-style REST surface this
// assembler needs (§6).
type Provider interface {
	UTXOs(ctx context.Context, address string) ([]UTXO, error)
	FundingTx(ctx context.Context, txid chainhash.Hash) (*wire.MsgTx, error)
	RecommendedFees(ctx context.Context) (FeeRate, error)
	Broadcast(ctx context.Context, rawTxHex string) (string, error)
}

// TxRequest is the tagged sum of §9: either the caller supplies inputs
// and outputs directly (Manual), or supplies a destination/amount and
// lets coin selection pick inputs (Auto).
type TxRequest struct {
	Manual *ManualRequest
	Auto   *AutoRequest
}

// ManualRequest is the caller-driven shape. CompressedPubKey is the single
// P2WPKH signer's compressed public key behind every input (§4.5 supports
// only one signer per transaction); it's required because sighash
// computation needs the pubkey hash backing each prevout's witness program.
type ManualRequest struct {
	Inputs           []UTXO
	Outputs          []Output
	CompressedPubKey []byte
}

// AutoRequest triggers UTXO selection against FromAddress.
type AutoRequest struct {
	FromAddress        string
	FromCompressedPub  []byte
	To                 string
	ValueSats          int64
	ConfirmationTarget int // blocks; default 6 per §4.5
}

// UnsignedTx wraps a PSBT packet plus the compressed pubkey used for every
// input (this assembler rejects mixed-key inputs; §4.5 supports only a
// single P2WPKH signer per transaction).
type UnsignedTx struct {
	Packet          *psbt.Packet
	CompressedPubKey []byte
}

func (UnsignedTx) chainFamily() string { return "bitcoin" }

// Assembler implements chains.Chain[TxRequest] for Bitcoin.
type Assembler struct {
	Provider   Provider
	Params     *chaincfg.Params
	Root       *btcec.PublicKey
}

var _ chains.Chain[TxRequest] = (*Assembler)(nil)

// DeriveAddressAndPubKey derives the bech32 P2WPKH address and compressed
// child public key for (callerID, path) via internal/derive.
func (a *Assembler) DeriveAddressAndPubKey(ctx context.Context, callerID, path string) (string, []byte, error) {
	child, err := derive.DeriveChildPubKey(a.Root, callerID, path)
	if err != nil {
		return "", nil, fmt.Errorf("bitcoin: %w", err)
	}
	addr, err := derive.BitcoinP2WPKHAddress(child, hrpFor(a.Params))
	if err != nil {
		return "", nil, fmt.Errorf("bitcoin: %w", err)
	}
	return addr, child.SerializeCompressed(), nil
}

func hrpFor(params *chaincfg.Params) string {
	switch params.Name {
	case chaincfg.MainNetParams.Name:
		return derive.HRPBitcoinMainnet
	case chaincfg.RegressionNetParams.Name:
		return derive.HRPBitcoinRegtest
	default:
		return derive.HRPBitcoinTestnet
	}
}

// PreparePayload runs UTXO selection (for Auto requests), assembles a
// PSBT with witnessUtxo set on every input, and computes the BIP-143
// sighash for each input directly from the PSBT fields (§4.5, §9).
func (a *Assembler) PreparePayload(ctx context.Context, req TxRequest) (chains.UnsignedTx, []chains.MPCPayload, error) {
	var inputs []UTXO
	var outputs []Output
	var compressedPub []byte

	switch {
	case req.Manual != nil:
		if len(req.Manual.CompressedPubKey) == 0 {
			return nil, nil, fmt.Errorf("bitcoin: %w: Manual request requires CompressedPubKey", chains.ErrProtocolInvariantViolated)
		}
		inputs = req.Manual.Inputs
		outputs = req.Manual.Outputs
		compressedPub = req.Manual.CompressedPubKey
	case req.Auto != nil:
		var err error
		inputs, outputs, err = a.selectCoins(ctx, *req.Auto)
		if err != nil {
			return nil, nil, err
		}
		compressedPub = req.Auto.FromCompressedPub
	default:
		return nil, nil, fmt.Errorf("bitcoin: %w: empty TxRequest", chains.ErrProtocolInvariantViolated)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(inputs))
	prevTxOutList := make([]*wire.TxOut, len(inputs))

	for i, in := range inputs {
		fundingTx, err := a.Provider.FundingTx(ctx, in.TxID)
		if err != nil {
			return nil, nil, fmt.Errorf("bitcoin: fetch funding tx %s: %w", in.TxID, err)
		}
		if int(in.Vout) >= len(fundingTx.TxOut) {
			return nil, nil, fmt.Errorf("bitcoin: %w: vout %d out of range", chains.ErrProtocolInvariantViolated, in.Vout)
		}
		prevOut := fundingTx.TxOut[in.Vout]

		outPoint := wire.OutPoint{Hash: in.TxID, Index: in.Vout}
		tx.AddTxIn(wire.NewTxIn(&outPoint, nil, nil))
		prevOuts[outPoint] = prevOut
		prevTxOutList[i] = prevOut
	}

	if len(inputs) == 0 {
		return nil, nil, fmt.Errorf("bitcoin: %w", chains.ErrInsufficientFunds)
	}

	for _, out := range outputs {
		pkScript, err := addressToPkScript(out.Address, a.Params)
		if err != nil {
			return nil, nil, fmt.Errorf("bitcoin: output address: %w", err)
		}
		tx.AddTxOut(wire.NewTxOut(out.Value, pkScript))
	}

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, nil, fmt.Errorf("bitcoin: build PSBT: %w", err)
	}
	for i, prevOut := range prevTxOutList {
		packet.Inputs[i].WitnessUtxo = prevOut
	}

	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	pubKeyHash := derive.Hash160(compressedPub)
	witnessProgram, err := txscript.NewScriptBuilder().AddOp(txscript.OP_0).AddData(pubKeyHash).Script()
	if err != nil {
		return nil, nil, fmt.Errorf("bitcoin: witness program: %w", err)
	}

	payloads := make([]chains.MPCPayload, 0, len(inputs))
	for i, prevOut := range prevTxOutList {
		if !bytes.Equal(prevOut.PkScript, witnessProgram) {
			return nil, nil, fmt.Errorf("bitcoin: %w: input %d is not a P2WPKH output of the signing key", chains.ErrProtocolInvariantViolated, i)
		}
		scriptCode, err := p2pkhScriptCode(pubKeyHash)
		if err != nil {
			return nil, nil, fmt.Errorf("bitcoin: script code: %w", err)
		}

		sighash, err := txscript.CalcWitnessSigHash(scriptCode, sigHashes, txscript.SigHashAll, tx, i, prevOut.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("bitcoin: calc witness sighash input %d: %w", i, err)
		}

		var payload [32]byte
		copy(payload[:], sighash)
		payloads = append(payloads, chains.MPCPayload{Index: uint32(i), Payload: payload})
	}

	return UnsignedTx{Packet: packet, CompressedPubKey: compressedPub}, payloads, nil
}

// p2pkhScriptCode builds the P2PKH "script code" BIP-143 substitutes for a
// P2WPKH witness program: OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG.
func p2pkhScriptCode(pubKeyHash []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

func addressToPkScript(address string, params *chaincfg.Params) ([]byte, error) {
	addr, err := decodeAddress(address, params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

// AttachSignaturesAndBroadcast attaches each input's compressed witness
// [DER(sig)||SIGHASH_ALL, pubkey], finalizes the PSBT, extracts the raw
// transaction, and broadcasts it (§4.5).
func (a *Assembler) AttachSignaturesAndBroadcast(ctx context.Context, tx chains.UnsignedTx, signatures map[uint32]chains.Signature) (string, error) {
	unsigned, ok := tx.(UnsignedTx)
	if !ok {
		return "", fmt.Errorf("bitcoin: %w", chains.ErrProtocolInvariantViolated)
	}

	indices := make([]int, 0, len(signatures))
	for idx := range signatures {
		indices = append(indices, int(idx))
	}
	sort.Ints(indices)

	for _, idx := range indices {
		sig := signatures[uint32(idx)]
		der, err := sigconv.ToDER(sig.RS)
		if err != nil {
			return "", fmt.Errorf("bitcoin: input %d: %w", idx, err)
		}
		witness := append(der, byte(txscript.SigHashAll))

		updater, err := psbt.NewUpdater(unsigned.Packet)
		if err != nil {
			return "", fmt.Errorf("bitcoin: PSBT updater: %w", err)
		}
		if _, err := updater.Sign(idx, witness, unsigned.CompressedPubKey, nil, nil); err != nil {
			return "", fmt.Errorf("bitcoin: attach witness input %d: %w", idx, err)
		}
	}

	if err := psbt.MaybeFinalizeAll(unsigned.Packet); err != nil {
		return "", fmt.Errorf("bitcoin: finalize PSBT: %w", err)
	}

	finalTx, err := psbt.Extract(unsigned.Packet)
	if err != nil {
		return "", fmt.Errorf("bitcoin: extract final tx: %w", err)
	}

	rawHex, err := serializeTxHex(finalTx)
	if err != nil {
		return "", fmt.Errorf("bitcoin: serialize final tx: %w", err)
	}

	txid, err := a.Provider.Broadcast(ctx, rawHex)
	if err != nil {
		return "", fmt.Errorf("bitcoin: broadcast: %w", err)
	}
	return txid, nil
}

// GetBalance sums the value of address's current UTXO set, in satoshis.
func (a *Assembler) GetBalance(ctx context.Context, address string) (string, error) {
	utxos, err := a.Provider.UTXOs(ctx, address)
	if err != nil {
		return "", fmt.Errorf("bitcoin: %w: %v", chains.ErrProviderUnreachable, err)
	}
	var total int64
	for _, u := range utxos {
		total += u.Value
	}
	return fmt.Sprintf("%d", total), nil
}
