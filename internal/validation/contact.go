package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/models"
)

// Result distinguishes three cases: valid, invalid with a reason, and
// empty input (invalid but with no reason, so the form can keep the
// submit control disabled without flashing an error message).
type Result struct {
	Valid  bool
	Reason string
}

const phoneDigits = 9

var mtnPrefixes = []string{"65", "66", "67", "68"}

const orangePrefix = "69"

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var nonDigit = regexp.MustCompile(`\D`)

// StripNonDigits is idempotent: stripping an already-stripped value is
// a no-op.
func StripNonDigits(raw string) string {
	return nonDigit.ReplaceAllString(raw, "")
}

// ValidatePhone is a pure function of (raw, carrier); it is re-run on
// every input change and holds no state.
func ValidatePhone(raw string, carrier models.Carrier) Result {
	digits := StripNonDigits(raw)
	if digits == "" {
		return Result{}
	}
	if len(digits) != phoneDigits {
		return Result{Reason: fmt.Sprintf("phone number must have exactly %d digits", phoneDigits)}
	}

	prefix := digits[:2]
	switch carrier {
	case models.CarrierMTN:
		for _, p := range mtnPrefixes {
			if prefix == p {
				return Result{Valid: true}
			}
		}
		return Result{Reason: fmt.Sprintf("MTN numbers must start with %s", strings.Join(mtnPrefixes, ", "))}
	case models.CarrierOrange:
		if prefix == orangePrefix {
			return Result{Valid: true}
		}
		return Result{Reason: fmt.Sprintf("Orange numbers must start with %s", orangePrefix)}
	default:
		return Result{Reason: fmt.Sprintf("unknown carrier %q", string(carrier))}
	}
}

// ValidateEmail applies a single permissive pattern: a local part, an
// "@", and a domain containing a dot.
func ValidateEmail(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{}
	}
	if !emailPattern.MatchString(trimmed) {
		return Result{Reason: "enter a valid email address"}
	}
	return Result{Valid: true}
}
