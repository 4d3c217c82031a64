package cosmos

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdktx "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	gogoproto "github.com/cosmos/gogoproto/proto"
)

// newSecp256k1PubKey wraps a compressed secp256k1 key in the cosmos-sdk's
// own PubKey type, so it round-trips through Any packing exactly like a
// locally-held key would.
func newSecp256k1PubKey(compressed []byte) cryptotypes.PubKey {
	return &secp256k1.PubKey{Key: compressed}
}

// encodeTxBody proto-encodes TxBody{messages, memo} (§4.6 step 4).
func encodeTxBody(msgs []sdk.Msg, memo string) ([]byte, error) {
	anys := make([]*types.Any, 0, len(msgs))
	for _, msg := range msgs {
		any, err := types.NewAnyWithValue(msg)
		if err != nil {
			return nil, fmt.Errorf("pack message: %w", err)
		}
		anys = append(anys, any)
	}

	body := sdktx.TxBody{
		Messages: anys,
		Memo:     memo,
	}
	return gogoproto.Marshal(&body)
}

// encodeAuthInfo proto-encodes AuthInfo{signer_info, fee} with
// SIGN_MODE_DIRECT (§4.6 step 4).
func encodeAuthInfo(pubKey cryptotypes.PubKey, sequence uint64, gasLimit uint64, feeAmount math.Int, denom string) ([]byte, error) {
	anyPubKey, err := types.NewAnyWithValue(pubKey)
	if err != nil {
		return nil, fmt.Errorf("pack pubkey: %w", err)
	}

	signerInfo := sdktx.SignerInfo{
		PublicKey: anyPubKey,
		ModeInfo: &sdktx.ModeInfo{
			Sum: &sdktx.ModeInfo_Single_{
				Single: &sdktx.ModeInfo_Single{Mode: signing.SignMode_SIGN_MODE_DIRECT},
			},
		},
		Sequence: sequence,
	}

	authInfo := sdktx.AuthInfo{
		SignerInfos: []*sdktx.SignerInfo{&signerInfo},
		Fee: &sdktx.Fee{
			Amount:   sdk.NewCoins(sdk.NewCoin(denom, feeAmount)),
			GasLimit: gasLimit,
		},
	}
	return gogoproto.Marshal(&authInfo)
}
