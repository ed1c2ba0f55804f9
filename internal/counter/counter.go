// Package counter provides text counting for halluscan.
//
// Token counting (tiktoken, cl100k_base) sizes and truncates entailment inputs; word and
// character counts feed the document statistics logged for each run.
//
// Usage Example:
//
//	tc, _ := counter.NewTokenCounter()
//	premise, hypothesis := tc.TruncatePair(premise, hypothesis, 512)
package counter

// Counter defines the interface for different text counting strategies.
type Counter interface {
	// Count returns the number of units (tokens, words, or characters) in given text.
	Count(text string) int

	// Name returns a human-readable name for this counting method (for logging)
	Name() string
}

// CountingMethod represents the different available counting strategies.
type CountingMethod int

const (
	// Tokens uses tiktoken with cl100k_base encoding (default)
	Tokens CountingMethod = iota
	// Words counts words using whitespace splitting
	Words
	// Characters counts individual characters including whitespace
	Characters
)

// String returns the string representation of the counting method.
func (cm CountingMethod) String() string {
	switch cm {
	case Tokens:
		return "tokens"
	case Words:
		return "words"
	case Characters:
		return "characters"
	default:
		return "unknown"
	}
}

// NewCounter creates a Counter for the specified method.
// Returns an error if the counter cannot be initialized (e.g., tiktoken encoding fails).
func NewCounter(method CountingMethod) (Counter, error) {
	switch method {
	case Words:
		return NewWordCounter(), nil
	case Characters:
		return NewCharCounter(), nil
	default:
		// tokens, also the fallback
		tc, err := NewTokenCounter()
		if err != nil {
			return nil, err
		}
		return tc, nil
	}
}

// Methods lists every counting method, in report order.
func Methods() []CountingMethod {
	return []CountingMethod{Characters, Words, Tokens}
}
