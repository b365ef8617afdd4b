package txbuilder

import (
	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/shopspring/decimal"
)

// NetworkFeeRate and SubsidyFeeRate are expressed per kilobyte, per spec.
var (
	NetworkFeeRate = decimal.RequireFromString("0.001")
	SubsidyFeeRate = decimal.RequireFromString("0.00005")
	DustLimit      = decimal.RequireFromString("0.0005")

	oneThousand = decimal.NewFromInt(1000)
	oneTenth    = decimal.RequireFromString("1.1")
)

// FeeRate selects the network rate, unless the caller requested a
// subsidized transaction and the coin allows it.
func FeeRate(c *coin.Coin, subsidized bool) decimal.Decimal {
	if subsidized && c.AllowTxSubsidy {
		return SubsidyFeeRate
	}
	return NetworkFeeRate
}

// RequiredFee computes the fee a transaction of the given estimated
// size must pay at feeRate.
func RequiredFee(estimatedSize int, feeRate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(estimatedSize)).Mul(feeRate).Div(oneThousand)
}

// CurrentFee is simply total inputs minus total outputs.
func CurrentFee(totalIn, totalOut decimal.Decimal) decimal.Decimal {
	return totalIn.Sub(totalOut)
}

// FeeIsSane holds when the current fee covers the required fee but
// doesn't overshoot it by more than 10%.
func FeeIsSane(currentFee, requiredFee decimal.Decimal) bool {
	return currentFee.GreaterThanOrEqual(requiredFee) && currentFee.LessThan(requiredFee.Mul(oneTenth))
}
