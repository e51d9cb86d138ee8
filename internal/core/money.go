// Package core defines the ledger domain: accounts, money and the error
// taxonomy every other layer maps from.
//
// This file contains parsing of monetary amounts from untrusted input.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseUnits converts a request-supplied amount into whole currency units.
//
// It accepts a plain decimal integer string ("250") or a JSON number that is
// integer-valued (250, 250.0). Fractional amounts, zero, negatives and
// anything non-numeric are rejected with ErrInvalidAmount: the ledger only
// moves whole smallest-unit quantities.
func ParseUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseJSONUnits converts a decoded JSON value into whole currency units.
// JSON numbers arrive as float64; 250.5 is not a valid amount even though it
// is a valid number.
func ParseJSONUnits(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		if n <= 0 || n != math.Trunc(n) || n > math.MaxInt64 {
			return 0, ErrInvalidAmount
		}
		return int64(n), nil
	case json.Number:
		return ParseUnits(n.String())
	case string:
		return ParseUnits(n)
	default:
		return 0, ErrInvalidAmount
	}
}
