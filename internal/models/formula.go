package models

// Notation enumerates the input grammars the normalizer understands.
// Only RPN is defined today; any other value is rejected.
type Notation string

const (
	NotationRPN Notation = "RPN"
)

// Formula is an immutable, content-addressed, normalized expression.
// The formula row is never updated after creation; Hash is unique.
type Formula struct {
	ID              int64    `json:"formula_id"`
	NormalizedInput string   `json:"normalized_input"`
	Hash            string   `json:"hash"`
	Notation        Notation `json:"notation"`
}
