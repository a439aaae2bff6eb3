package money

import "math"

const DefaultCurrency = "RUB"

// ToCents переводит сумму в копейки с округлением до ближайшей.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

func FromCentsPtr(cents *int64) *float64 {
	if cents == nil {
		return nil
	}
	v := FromCents(*cents)
	return &v
}
