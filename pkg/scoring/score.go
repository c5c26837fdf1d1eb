package scoring

import "github.com/shopspring/decimal"

var thousand = decimal.NewFromInt(1000)

// Score returns the weighted distance in km for an activity of sportType
// covering distanceMeters. Negative distances clamp to zero, so the result is
// never negative. Sports without a weight score zero.
func Score(sportType string, distanceMeters float64, t Table) decimal.Decimal {
	if distanceMeters <= 0 {
		return decimal.Zero
	}
	km := decimal.NewFromFloat(distanceMeters).Div(thousand)
	return ScoreKm(sportType, km, t)
}

// ScoreKm is Score over a distance already expressed in km.
func ScoreKm(sportType string, km decimal.Decimal, t Table) decimal.Decimal {
	if !km.IsPositive() {
		return decimal.Zero
	}
	w := t.Weight(sportType)
	if !w.IsPositive() {
		return decimal.Zero
	}
	return km.Mul(w)
}

// Kilometers converts meters to km, clamping negatives to zero.
func Kilometers(distanceMeters float64) decimal.Decimal {
	if distanceMeters <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(distanceMeters).Div(thousand)
}
