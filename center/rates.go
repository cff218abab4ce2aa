package center

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CollectionRate is actual revenue over expected revenue as a percentage,
// rounded half-up to two decimal places. Zero expected revenue yields
// exactly zero regardless of the actual value.
func CollectionRate(actual, expected decimal.Decimal) decimal.Decimal {
	if expected.IsZero() {
		return decimal.Zero
	}
	return actual.Mul(hundred).DivRound(expected, 2)
}

// AttendanceRate is present over (present+absent) as a percentage, rounded
// half-up to two decimal places. Zero attendance yields exactly zero.
func AttendanceRate(present, absent int) decimal.Decimal {
	total := present + absent
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(present)).Mul(hundred).
		DivRound(decimal.NewFromInt(int64(total)), 2)
}
