package orchestrator

import (
	"github.com/shopspring/decimal"

	"solana-sales-bot/internal/domain"
)

// DisplayPrice converts lamports to SOL truncated down to two decimals.
func DisplayPrice(lamports int64) decimal.Decimal {
	return floor2(decimal.New(lamports, 0).Div(decimal.New(domain.LamportsPerSOL, 0)))
}

// FiatPrice converts a display price at rate, truncated down to two decimals.
func FiatPrice(rate float64, display decimal.Decimal) decimal.Decimal {
	return floor2(decimal.NewFromFloat(rate).Mul(display))
}

func floor2(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Floor().Shift(-2)
}
