// Package normalizer validates and canonicalizes RPN formulas and computes
// their content hash. It is a pure function package: no I/O, no side
// effects, failures surface as InvalidFormulaError carrying a human-readable
// reason.
package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bobmcallan/satqueue/internal/models"
)

const (
	MaxFormulaLength = 300_000
	MaxTokens        = 85_000
)

var allowedOperators = map[string]struct{}{
	"&&":  {},
	"||":  {},
	"<=>": {},
	"=>":  {},
	"!":   {},
}

// InvalidFormulaError is returned when a raw formula fails validation.
type InvalidFormulaError struct {
	Reason string
}

func (e *InvalidFormulaError) Error() string {
	return e.Reason
}

// InvalidNotationError is returned when notation is not a recognized value.
type InvalidNotationError struct {
	Notation string
}

func (e *InvalidNotationError) Error() string {
	return fmt.Sprintf("unsupported notation: %s", e.Notation)
}

// NormalizeAndHash validates raw against the RPN grammar, canonicalizes its
// whitespace, and returns the canonical form together with
// sha256("<notation>:<normalized>") in lowercase hex.
func NormalizeAndHash(raw string, notation models.Notation) (normalized string, hash string, err error) {
	if notation != models.NotationRPN {
		return "", "", &InvalidNotationError{Notation: string(notation)}
	}

	normalized, err = normalizeRPN(raw)
	if err != nil {
		return "", "", err
	}

	hash = hashFormula(string(notation), normalized)
	return normalized, hash, nil
}

// normalizeRPN validates raw, then splits on runs of whitespace and rejoins
// with single-space separators. The token sequence is preserved exactly;
// RPN is position-sensitive.
func normalizeRPN(raw string) (string, error) {
	if err := validateFormula(raw); err != nil {
		return "", err
	}

	tokens := strings.Fields(raw)
	for _, tok := range tokens {
		if !isValidToken(tok) {
			return "", &InvalidFormulaError{Reason: "unallowed symbols or operators"}
		}
	}

	return strings.Join(tokens, " "), nil
}

func validateFormula(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &InvalidFormulaError{Reason: "formula cannot be empty"}
	}
	if len(raw) > MaxFormulaLength {
		return &InvalidFormulaError{Reason: fmt.Sprintf("formula exceeds %d characters", MaxFormulaLength)}
	}
	if strings.ContainsRune(raw, 0) {
		return &InvalidFormulaError{Reason: "formula contains invalid characters"}
	}

	tokens := strings.Fields(raw)
	if len(tokens) > MaxTokens {
		return &InvalidFormulaError{Reason: fmt.Sprintf("too many tokens (max %d)", MaxTokens)}
	}

	return nil
}

func isValidToken(tok string) bool {
	if _, ok := allowedOperators[tok]; ok {
		return true
	}
	return isAlnum(tok)
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}

func hashFormula(notation, normalized string) string {
	sum := sha256.Sum256([]byte(notation + ":" + normalized))
	return hex.EncodeToString(sum[:])
}
