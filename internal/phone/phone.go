// Package phone normalizes member phone numbers to E.164.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed for numbers entered without a country code.
const DefaultRegion = "US"

var ErrInvalidPhone = errors.New("invalid phone number")

// Normalize parses raw and returns it in E.164 form. Numbers without a
// leading "+" are read as DefaultRegion numbers.
func Normalize(raw string) (string, error) {
	return NormalizeRegion(raw, DefaultRegion)
}

// NormalizeRegion is Normalize with an explicit fallback region.
func NormalizeRegion(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}
	if strings.ContainsAny(raw, "@") {
		return "", ErrInvalidPhone
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// NormalizeOptional is Normalize that maps a blank input to "".
func NormalizeOptional(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return Normalize(raw)
}
