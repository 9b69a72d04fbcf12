// Package phone classifies Ugandan MSISDNs by mobile network and formats
// them for each provider's API.
package phone

import (
	"strings"

	"github.com/armada-suites/service-booking/internal/domain/domainerr"
)

// Network identifies the mobile network a number belongs to.
type Network string

const (
	NetworkMTN     Network = "mtn"
	NetworkAirtel  Network = "airtel"
	NetworkUnknown Network = "unknown"
)

const countryCode = "256"

// Carrier prefix sets are disjoint by regulation; anything outside them is
// unroutable and must not be guessed at.
var (
	mtnPrefixes    = map[string]bool{"77": true, "78": true, "76": true, "39": true}
	airtelPrefixes = map[string]bool{"75": true, "70": true, "20": true}
)

// Normalize reduces any accepted input form (leading 0, leading +256 or
// 256, bare 9-digit local) to the canonical 9-digit local number.
func Normalize(msisdn string) (string, error) {
	var digits strings.Builder
	for _, r := range msisdn {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else if r != ' ' && r != '+' && r != '-' {
			return "", domainerr.NewValidationError("phone number contains invalid characters")
		}
	}
	n := digits.String()

	switch {
	case strings.HasPrefix(n, countryCode) && len(n) == 12:
		n = n[len(countryCode):]
	case strings.HasPrefix(n, "0") && len(n) == 10:
		n = n[1:]
	}

	if len(n) != 9 {
		return "", domainerr.NewValidationError("phone number must be a 9-digit local number")
	}
	return n, nil
}

// Classify returns the network a phone number routes to. Unrecognized
// prefixes return NetworkUnknown with no error; callers must treat that as
// unroutable.
func Classify(msisdn string) (Network, error) {
	local, err := Normalize(msisdn)
	if err != nil {
		return NetworkUnknown, err
	}

	prefix := local[:2]
	switch {
	case mtnPrefixes[prefix]:
		return NetworkMTN, nil
	case airtelPrefixes[prefix]:
		return NetworkAirtel, nil
	default:
		return NetworkUnknown, nil
	}
}

// Format renders the number in the exact digit arrangement each provider's
// API validates. MTN MoMo takes the full international form; Airtel Money
// takes the bare local number, with the country carried in request headers.
// The asymmetry is provider-mandated: sending the wrong arrangement fails
// silently on their side.
func Format(msisdn string, network Network) (string, error) {
	local, err := Normalize(msisdn)
	if err != nil {
		return "", err
	}

	switch network {
	case NetworkMTN:
		return countryCode + local, nil
	case NetworkAirtel:
		return local, nil
	default:
		return "", domainerr.NewValidationError("cannot format number for unknown network")
	}
}
