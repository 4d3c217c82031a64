package bitcoin

import (
	"context"
	"fmt"

	"github.com/chainsig-network/chainsig-go/chains"
)

// dustLimit is the dust threshold for change: a change amount at or below
// this value is simply not added as an output, left to the selector to decide
// (§4.5: "dust policy is deferred to the selector").
const dustLimit = int64(546)

// estimatedVBytesPerInput and estimatedVBytesPerOutput are rough P2WPKH
// size estimates used only to size the fee; they are not consensus rules.
const (
	estimatedVBytesOverhead    = 10
	estimatedVBytesPerInput    = 68
	estimatedVBytesPerOutput   = 31
)

// selectCoins implements the UTXO-selection pass of §4.5 step 1: fetch
// UTXOs for the caller's address, fetch a fee-rate recommendation at the
// configured confirmation target (default 6 blocks), and greedily select
// inputs until the target value plus fee is covered, adding a change
// output back to the caller when a round remainder is feasible.
func (a *Assembler) selectCoins(ctx context.Context, req AutoRequest) ([]UTXO, []Output, error) {
	utxos, err := a.Provider.UTXOs(ctx, req.FromAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("bitcoin: %w: %v", chains.ErrProviderUnreachable, err)
	}

	feeRate, err := a.Provider.RecommendedFees(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("bitcoin: %w: %v", chains.ErrProviderUnreachable, err)
	}

	target := req.ConfirmationTarget
	if target == 0 {
		target = 6
	}
	satPerVByte := feeRateForTarget(feeRate, target)

	var selected []UTXO
	var total int64
	for _, u := range utxos {
		selected = append(selected, u)
		total += u.Value

		vbytes := estimatedVBytesOverhead + estimatedVBytesPerInput*len(selected) + estimatedVBytesPerOutput*2
		fee := satPerVByte * int64(vbytes)
		if total >= req.ValueSats+fee {
			outputs := []Output{{Address: req.To, Value: req.ValueSats}}
			change := total - req.ValueSats - fee
			if change > dustLimit {
				outputs = append(outputs, Output{Address: req.FromAddress, Value: change})
			}
			return selected, outputs, nil
		}
	}

	return nil, nil, fmt.Errorf("bitcoin: %w", chains.ErrInsufficientFunds)
}

func feeRateForTarget(fr FeeRate, target int) int64 {
	switch {
	case target <= 1:
		return fr.FastestFee
	case target <= 3:
		return fr.HalfHourFee
	case target <= 6:
		return fr.HourFee
	default:
		return fr.EconomyFee
	}
}
