package core

import "math"

// Round2 rounds x to two decimals, halves away from zero.
//
// Examples:
//
//	Round2(1.666) -> 1.67
//	Round2(-0.125) -> -0.13
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// HoursFromMinutes converts whole minutes to hours rounded with Round2.
func HoursFromMinutes(minutes int64) float64 {
	return Round2(float64(minutes) / 60)
}
