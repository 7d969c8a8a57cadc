package models

import (
	"errors"
	"regexp"

	"github.com/shopspring/decimal"
)

const (
	MaxIntegerDigits  = 15
	MaxFractionDigits = 8
)

var (
	ErrNotPlainDecimal = errors.New("not a plain decimal number")

	plainDecimalRe = regexp.MustCompile(`^[+-]?\d{1,15}(\.\d{1,8})?$`)
)

// ParsePlainDecimal принимает только запись вида 123.45 без экспоненты:
// не больше MaxIntegerDigits цифр до точки и MaxFractionDigits после.
func ParsePlainDecimal(raw string) (decimal.Decimal, error) {
	if !plainDecimalRe.MatchString(raw) {
		return decimal.Zero, ErrNotPlainDecimal
	}
	return decimal.NewFromString(raw)
}
