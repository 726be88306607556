package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// Zambian numbering: country prefix 260, nine national digits.
const (
	countryPrefix  = "260"
	nationalDigits = 9
)

var nonDigit = regexp.MustCompile(`\D`)

// Phone reformats any digit-bearing input into the canonical
// "+260 ddd ddd ddd" shape. Non-digits are stripped, a leading country
// prefix is dropped, and short inputs are left-padded with zeros to nine
// digits; inputs longer than nine digits are truncated. The function is
// idempotent but not validating: malformed input becomes a padded or
// truncated number rather than an error, so callers that care about
// correctness must validate upstream.
func Phone(raw string) string {
	digits := nonDigit.ReplaceAllString(raw, "")
	digits = strings.TrimPrefix(digits, countryPrefix)
	for len(digits) > nationalDigits && strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}
	if len(digits) < nationalDigits {
		digits = strings.Repeat("0", nationalDigits-len(digits)) + digits
	}
	return fmt.Sprintf("+%s %s %s %s", countryPrefix, digits[0:3], digits[3:6], digits[6:9])
}
