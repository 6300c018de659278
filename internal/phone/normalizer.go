// Package phone canonicalizes Egyptian phone numbers into the
// international digits-only form the messaging gateway expects.
package phone

import "errors"

// ErrRejected means the input cannot be shaped into a deliverable number.
var ErrRejected = errors.New("phone: number rejected")

const (
	countryCode  = "20" // Egypt
	countryDigit = '2'  // first digit of the country code
	trunkPrefix  = '0'  // national dialing prefix
	mobileLead   = '1'  // first digit of a trunk-stripped mobile number

	nationalLen = 10 // mobile number without trunk prefix
	minLen      = 11 // shortest acceptable canonical number
)

// Normalize strips all non-digits and rewrites the number into
// international form, e.g. "010 1234 5678" -> "201012345678".
// It is pure and idempotent: an already canonical number passes through
// unchanged. Whether the number is actually reachable is the messenger's
// call, not ours.
func Normalize(raw string) (string, error) {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) == 0 {
		return "", ErrRejected
	}

	switch {
	case digits[0] == trunkPrefix:
		digits = append([]byte(countryCode), digits[1:]...)
	case digits[0] == mobileLead && len(digits) == nationalLen:
		digits = append([]byte(countryCode), digits...)
	case digits[0] != countryDigit && len(digits) == nationalLen:
		digits = append([]byte{countryDigit}, digits...)
	}

	if len(digits) < minLen {
		return "", ErrRejected
	}
	return string(digits), nil
}
