// Package core provides money parsing and handling utilities.
//
// Amounts are stored as integer centavos to avoid floating-point rounding.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var maxSafeCentavos = decimal.NewFromInt(1<<62 - 1)

// ParseDecimalToCentavos converts a decimal string to centavos with half-up
// rounding on the third decimal place.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The result
// is always positive centavos. Returns ErrInvalidAmount for invalid formats,
// signed values, or zero amounts.
func ParseDecimalToCentavos(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only unsigned values allowed
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	centavos := d.Shift(2).Round(0)
	if !centavos.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if centavos.GreaterThan(maxSafeCentavos) {
		return 0, ErrInvalidAmount
	}
	return centavos.IntPart(), nil
}

// Pesos returns the peso value as a float64 for display purposes.
// Use centavos for calculations.
func (m Money) Pesos() float64 {
	return float64(m.Centavos) / 100.0
}

// FormatPesos formats centavos as a peso currency string (e.g. "₱12.34").
func FormatPesos(centavos int64) string {
	neg := centavos < 0
	if neg {
		centavos = -centavos
	}
	pesos := centavos / 100
	rem := centavos % 100
	s := strconv.FormatInt(pesos, 10) + "." + fmt.Sprintf("%02d", rem)
	if neg {
		return "-₱" + s
	}
	return "₱" + s
}
