package services

import "math"

// IncrementValidator requires every bid to beat the current one by at least
// a fixed amount. Comparisons are done in whole cents.
type IncrementValidator struct {
	minIncrement float64
}

func NewIncrementValidator(minIncrement float64) *IncrementValidator {
	if minIncrement <= 0 {
		minIncrement = 0.01
	}
	return &IncrementValidator{minIncrement: minIncrement}
}

func (v *IncrementValidator) ValidateIncrement(currentAmount, newAmount float64) bool {
	return toCents(newAmount) >= toCents(v.GetMinimumBid(currentAmount))
}

func (v *IncrementValidator) GetMinimumBid(currentAmount float64) float64 {
	return currentAmount + v.minIncrement
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
