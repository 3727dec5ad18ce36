// Package phone derives canonical match keys from raw phone strings.
//
// Device address books carry numbers in many representations: international
// prefix present or absent, punctuation, local dialing conventions. The
// remote directory keys members by the canonical E.164 form. This package
// maps any raw string to the small set of deterministic keys used for
// matching; the keys are never displayed.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalizer maps raw phone strings to canonical match keys using a fixed
// default region hint for numbers missing a country code.
type Normalizer struct {
	defaultRegion string
}

// NewNormalizer creates a normalizer with the given default region
// (ISO 3166-1 alpha-2, e.g. "US" or "VE")
func NewNormalizer(defaultRegion string) *Normalizer {
	return &Normalizer{defaultRegion: strings.ToUpper(strings.TrimSpace(defaultRegion))}
}

// DefaultRegion returns the region hint used for numbers without a country code
func (n *Normalizer) DefaultRegion() string {
	return n.defaultRegion
}

// Keys returns the canonical match keys for one raw phone string.
//
// On a successful region-aware parse it returns two keys: the full
// international form with the leading "+" and the same digits without the
// "+" (legacy snapshots matched on the no-plus form). When the string cannot
// be parsed as a possible number it degrades to a single digits-only key: a
// false negative against a real contact is worse than an imprecise key.
// Empty and whitespace-only input yields no keys. Keys never fails.
func (n *Normalizer) Keys(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	num, err := phonenumbers.Parse(trimmed, n.defaultRegion)
	if err == nil && phonenumbers.IsPossibleNumber(num) {
		// Format drops extensions, which is what matching wants
		e164 := phonenumbers.Format(num, phonenumbers.E164)
		return []string{e164, strings.TrimPrefix(e164, "+")}
	}

	digits := DigitsOnly(trimmed)
	if digits == "" {
		return nil
	}
	return []string{digits}
}

// DigitsOnly strips every non-digit character from a phone string
func DigitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
