package cosmos

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	"github.com/stretchr/testify/require"

	"github.com/chainsig-network/chainsig-go/internal/canonical"
	"github.com/chainsig-network/chainsig-go/mpc"
	"github.com/chainsig-network/chainsig-go/sigconv"
)

type stubSigner struct {
	sig sigconv.MPCSignature
	err error
}

func (s *stubSigner) Sign(ctx context.Context, req mpc.SignRequest) (sigconv.MPCSignature, error) {
	return s.sig, s.err
}

func testKeyring(t *testing.T, signer Signer) *Keyring {
	t.Helper()
	k, err := NewKeyring(signer, testRootKey(t), "alice.testnet", canonical.Path{String: "m/44'/118'/0'/0/0"}, "alice")
	require.NoError(t, err)
	return k
}

func testSignature() sigconv.MPCSignature {
	var sig sigconv.MPCSignature
	sig.BigR.AffinePoint = "03" + "1122334455667788990011223344556677889900112233445566778899001122"
	sig.S.Scalar = "2233445566778899001122334455667788990011223344556677889900aabbcc"
	sig.RecoveryID = 0
	return sig
}

func TestKeyring_ListAndKey(t *testing.T) {
	k := testKeyring(t, &stubSigner{})

	records, err := k.List()
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec, err := k.Key("alice")
	require.NoError(t, err)
	require.Equal(t, "alice", rec.Name)

	_, err = k.Key("bob")
	require.Error(t, err)
}

func TestKeyring_KeyByAddress(t *testing.T) {
	k := testKeyring(t, &stubSigner{})

	rec, err := k.KeyByAddress(k.address)
	require.NoError(t, err)
	require.Equal(t, "alice", rec.Name)

	_, err = k.KeyByAddress(sdk.AccAddress{0x01, 0x02})
	require.Error(t, err)
}

func TestKeyring_Sign(t *testing.T) {
	signer := &stubSigner{sig: testSignature()}
	k := testKeyring(t, signer)

	sig, pub, err := k.Sign("alice", []byte("cosmos sign doc bytes"), signing.SignMode_SIGN_MODE_DIRECT)
	require.NoError(t, err)
	require.Len(t, sig, 64)
	require.Equal(t, k.pubKey, pub)

	_, _, err = k.Sign("bob", []byte("x"), signing.SignMode_SIGN_MODE_DIRECT)
	require.Error(t, err)
}

func TestKeyring_SignByAddress(t *testing.T) {
	signer := &stubSigner{sig: testSignature()}
	k := testKeyring(t, signer)

	sig, _, err := k.SignByAddress(k.address, []byte("doc bytes"), signing.SignMode_SIGN_MODE_DIRECT)
	require.NoError(t, err)
	require.Len(t, sig, 64)

	_, _, err = k.SignByAddress(sdk.AccAddress{0xff}, []byte("doc bytes"), signing.SignMode_SIGN_MODE_DIRECT)
	require.Error(t, err)
}

func TestKeyring_ReadOnlyRejections(t *testing.T) {
	k := testKeyring(t, &stubSigner{})

	require.ErrorIs(t, k.Delete("alice"), errReadOnly)
	require.ErrorIs(t, k.DeleteByAddress(k.address), errReadOnly)
	require.ErrorIs(t, k.Rename("alice", "bob"), errReadOnly)
	require.ErrorIs(t, k.ImportPrivKey("alice", "armor", "pass"), errReadOnly)
	require.ErrorIs(t, k.ImportPrivKeyHex("alice", "hex", "algo"), errReadOnly)
	require.ErrorIs(t, k.ImportPubKey("alice", "armor"), errReadOnly)

	_, _, err := k.NewMnemonic("alice", 0, "", "", nil)
	require.ErrorIs(t, err, errReadOnly)

	_, err = k.NewAccount("alice", "mnemonic", "", "", nil)
	require.ErrorIs(t, err, errReadOnly)

	_, err = k.SaveLedgerKey("alice", nil, "cosmos", 118, 0, 0)
	require.ErrorIs(t, err, errReadOnly)

	_, err = k.SaveOfflineKey("alice", k.pubKey)
	require.ErrorIs(t, err, errReadOnly)

	_, err = k.SaveMultisig("alice", k.pubKey)
	require.ErrorIs(t, err, errReadOnly)

	_, err = k.ExportPrivKeyArmor("alice", "pass")
	require.ErrorIs(t, err, errReadOnly)

	_, err = k.ExportPrivKeyArmorByAddress(k.address, "pass")
	require.ErrorIs(t, err, errReadOnly)
}

func TestKeyring_ExportPubKeyArmor(t *testing.T) {
	k := testKeyring(t, &stubSigner{})

	armor, err := k.ExportPubKeyArmor("alice")
	require.NoError(t, err)
	require.NotEmpty(t, armor)

	armorByAddr, err := k.ExportPubKeyArmorByAddress(k.address)
	require.NoError(t, err)
	require.Equal(t, armor, armorByAddr)
}

func TestKeyring_MigrateAll(t *testing.T) {
	k := testKeyring(t, &stubSigner{})
	records, err := k.MigrateAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestKeyring_SupportedAlgorithms(t *testing.T) {
	k := testKeyring(t, &stubSigner{})
	supported, _ := k.SupportedAlgorithms()
	require.Len(t, supported, 1)
}

func TestKeyring_Backend(t *testing.T) {
	k := testKeyring(t, &stubSigner{})
	require.Equal(t, "chainsig-mpc", k.Backend())
}
