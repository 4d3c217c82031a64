package cosmos

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"

	"github.com/chainsig-network/chainsig-go/internal/canonical"
	"github.com/chainsig-network/chainsig-go/internal/derive"
	"github.com/chainsig-network/chainsig-go/mpc"
	"github.com/chainsig-network/chainsig-go/sigconv"
)

// Signer is the subset of mpc.Client a Keyring needs: one signature per
// 32-byte payload, routed through the coordinator-chain signer contract.
type Signer interface {
	Sign(ctx context.Context, req mpc.SignRequest) (sigconv.MPCSignature, error)
}

// Keyring implements cosmos-sdk's keyring.Keyring for a single derived
// identity, backed by this module's MPC signing client instead of a local
// private key. Generalizes the teacher's CelestiaKeyring (sdk-go/celestia.go),
// which wrapped a hosted HTTP signer, to the MPC contract directly, so the
// cosmos assembler can be dropped into any cosmos-sdk client code that
// expects a keyring.Keyring (§12 "Celestia-keyring-style adapter").
//
// A Keyring holds exactly one key, named Name; every keyring.Keyring method
// that takes a uid/address validates it against that single identity.
type Keyring struct {
	MPC      Signer
	CallerID string
	Path     canonical.Path
	Name     string

	pubKey  cryptotypes.PubKey
	address sdk.AccAddress
}

var _ keyring.Keyring = (*Keyring)(nil)

// NewKeyring derives the child public key for (callerID, path) against
// root and constructs a Keyring backed by mpc. name is the sole key name
// this keyring exposes through List/Key/KeyByAddress.
func NewKeyring(mpcClient Signer, root *btcec.PublicKey, callerID string, path canonical.Path, name string) (*Keyring, error) {
	canonicalPath, err := canonical.Canonicalize(path)
	if err != nil {
		return nil, fmt.Errorf("cosmos: keyring: canonicalize path: %w", err)
	}
	child, err := derive.DeriveChildPubKey(root, callerID, canonicalPath)
	if err != nil {
		return nil, fmt.Errorf("cosmos: keyring: %w", err)
	}

	pubKey := newSecp256k1PubKey(child.SerializeCompressed())
	address := sdk.AccAddress(pubKey.Address())

	return &Keyring{
		MPC:      mpcClient,
		CallerID: callerID,
		Path:     path,
		Name:     name,
		pubKey:   pubKey,
		address:  address,
	}, nil
}

// Backend identifies this keyring's backend in cosmos-sdk keyring configs.
func (k *Keyring) Backend() string { return "chainsig-mpc" }

// List returns the single key this Keyring holds.
func (k *Keyring) List() ([]*keyring.Record, error) {
	rec, err := k.Key(k.Name)
	if err != nil {
		return nil, err
	}
	return []*keyring.Record{rec}, nil
}

// SupportedAlgorithms reports secp256k1 as the only supported signing
// algorithm, matching the curve the MPC signer contract derives over.
func (k *Keyring) SupportedAlgorithms() (keyring.SigningAlgoList, keyring.SigningAlgoList) {
	return keyring.SigningAlgoList{hd.Secp256k1}, keyring.SigningAlgoList{}
}

// Key returns the key record for uid, which must equal k.Name.
func (k *Keyring) Key(uid string) (*keyring.Record, error) {
	if uid != k.Name {
		return nil, fmt.Errorf("cosmos: keyring: key %q not found (only %q available)", uid, k.Name)
	}
	return keyring.NewOfflineRecord(k.Name, k.pubKey)
}

// KeyByAddress returns the key record for address, which must equal this
// keyring's derived address.
func (k *Keyring) KeyByAddress(address sdk.Address) (*keyring.Record, error) {
	if !address.Equals(k.address) {
		return nil, fmt.Errorf("cosmos: keyring: key with address %s not found", address.String())
	}
	return keyring.NewOfflineRecord(k.Name, k.pubKey)
}

// Sign signs msg's SHA-256 digest through the MPC client and returns the
// raw 64-byte R||S signature, matching what cosmos-sdk's SIGN_MODE_DIRECT
// signing expects from a keyring.Keyring.
func (k *Keyring) Sign(uid string, msg []byte, _ signing.SignMode) ([]byte, cryptotypes.PubKey, error) {
	if uid != k.Name {
		return nil, nil, fmt.Errorf("cosmos: keyring: key %q not found", uid)
	}

	digest := sha256.Sum256(msg)
	sig, err := k.MPC.Sign(context.Background(), mpc.SignRequest{
		Payload: digest,
		Path:    k.Path,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cosmos: keyring: sign: %w", err)
	}

	raw, err := sigconv.ToRaw64(sig)
	if err != nil {
		return nil, nil, fmt.Errorf("cosmos: keyring: %w", err)
	}
	return raw[:], k.pubKey, nil
}

// SignByAddress signs msg for the key at address, which must equal this
// keyring's derived address.
func (k *Keyring) SignByAddress(address sdk.Address, msg []byte, signMode signing.SignMode) ([]byte, cryptotypes.PubKey, error) {
	if !address.Equals(k.address) {
		return nil, nil, fmt.Errorf("cosmos: keyring: key with address %s not found", address.String())
	}
	return k.Sign(k.Name, msg, signMode)
}

// The remaining keyring.Keyring methods manage local key material this
// keyring never holds; every mutation is rejected, mirroring the teacher's
// CelestiaKeyring's read-only posture.

var errReadOnly = errors.New("cosmos: keyring: read-only, key material is held by the MPC signer contract")

func (k *Keyring) Delete(string) error                         { return errReadOnly }
func (k *Keyring) DeleteByAddress(sdk.Address) error            { return errReadOnly }
func (k *Keyring) Rename(string, string) error                  { return errReadOnly }
func (k *Keyring) ImportPrivKey(string, string, string) error   { return errReadOnly }
func (k *Keyring) ImportPrivKeyHex(string, string, string) error { return errReadOnly }
func (k *Keyring) ImportPubKey(string, string) error            { return errReadOnly }

func (k *Keyring) NewMnemonic(string, keyring.Language, string, string, keyring.SignatureAlgo) (*keyring.Record, string, error) {
	return nil, "", errReadOnly
}

func (k *Keyring) NewAccount(string, string, string, string, keyring.SignatureAlgo) (*keyring.Record, error) {
	return nil, errReadOnly
}

func (k *Keyring) SaveLedgerKey(string, keyring.SignatureAlgo, string, uint32, uint32, uint32) (*keyring.Record, error) {
	return nil, errReadOnly
}

func (k *Keyring) SaveOfflineKey(string, cryptotypes.PubKey) (*keyring.Record, error) {
	return nil, errReadOnly
}

func (k *Keyring) SaveMultisig(string, cryptotypes.PubKey) (*keyring.Record, error) {
	return nil, errReadOnly
}

// ExportPubKeyArmor exports the hex-encoded public key (no private material
// exists to armor).
func (k *Keyring) ExportPubKeyArmor(uid string) (string, error) {
	if uid != k.Name {
		return "", fmt.Errorf("cosmos: keyring: key %q not found", uid)
	}
	return fmt.Sprintf("%X", k.pubKey.Bytes()), nil
}

func (k *Keyring) ExportPubKeyArmorByAddress(address sdk.Address) (string, error) {
	if !address.Equals(k.address) {
		return "", fmt.Errorf("cosmos: keyring: key with address %s not found", address.String())
	}
	return k.ExportPubKeyArmor(k.Name)
}

func (k *Keyring) ExportPrivKeyArmor(string, string) (string, error) {
	return "", errReadOnly
}

func (k *Keyring) ExportPrivKeyArmorByAddress(sdk.Address, string) (string, error) {
	return "", errReadOnly
}

// MigrateAll is a no-op: this keyring never stores amino-encoded records.
func (k *Keyring) MigrateAll() ([]*keyring.Record, error) {
	return k.List()
}
