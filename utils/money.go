package utils

import "math"

// MoneyTolerance is the rounding tolerance used when comparing monetary
// amounts. Anything inside one cent is considered equal.
const MoneyTolerance = 0.01

// RoundMoney rounds an amount to cents, half away from zero.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// MoneyEquals reports whether two amounts are equal within MoneyTolerance.
func MoneyEquals(a, b float64) bool {
	return math.Abs(a-b) <= MoneyTolerance
}

// MoneyGreater reports whether a exceeds b by more than MoneyTolerance.
func MoneyGreater(a, b float64) bool {
	return a-b > MoneyTolerance
}
