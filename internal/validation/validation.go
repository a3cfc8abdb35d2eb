// Package validation holds the pure input validators applied before any
// parsing or persistence work. All functions are total and deterministic.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Ulixes-8/orderflow/internal/entities"
)

var (
	// E.164: leading +, 8-15 digits, no leading zero after the +.
	mobilePattern   = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	orderIDPattern  = regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)
	authCodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// Mobile validates an E.164 mobile number and returns the canonical value.
func Mobile(raw string) (string, error) {
	mobile := strings.TrimSpace(raw)
	if !mobilePattern.MatchString(mobile) {
		return "", entities.NewError(entities.CodeInvalidMobile, "Invalid mobile number format.")
	}
	return mobile, nil
}

// MessageLength rejects messages longer than maxLen characters. Length is
// counted in characters, not bytes. Trailing newlines are stripped before
// counting so piped input is not penalized.
func MessageLength(raw string, maxLen int) error {
	normalized := strings.TrimRight(raw, "\n")
	if utf8.RuneCountInString(normalized) > maxLen {
		return entities.NewErrorWithDetails(
			entities.CodeMessageTooLong,
			fmt.Sprintf("Message exceeds maximum length of %d characters.", maxLen),
			map[string]any{"max_len": maxLen},
		)
	}
	return nil
}

// OrderID validates the ORD-XXXXXXXX identifier format and returns the
// canonical value.
func OrderID(raw string) (string, error) {
	orderID := strings.TrimSpace(raw)
	if !orderIDPattern.MatchString(orderID) {
		return "", entities.NewErrorWithDetails(
			entities.CodeParseError,
			"Invalid order ID format.",
			map[string]any{"field": "order_id"},
		)
	}
	return orderID, nil
}

// AuthCode validates the six-digit auth code format and returns the
// canonical value. This is a format check only, not the secret comparison.
func AuthCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if !authCodePattern.MatchString(code) {
		return "", entities.NewErrorWithDetails(
			entities.CodeParseError,
			"Invalid auth code format.",
			map[string]any{"field": "auth_code"},
		)
	}
	return code, nil
}
