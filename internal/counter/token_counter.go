package counter

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName is the BPE vocabulary used to approximate model input lengths.
const encodingName = "cl100k_base"

// TokenCounter counts and truncates text in BPE tokens. It is safe for concurrent use.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

// NewTokenCounter loads the encoding. The first call may download the vocabulary.
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s encoding: %w", encodingName, err)
	}

	return &TokenCounter{
		encoding: encoding,
	}, nil
}

// Count returns the number of tokens in text.
func (tc *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(tc.encode(text))
}

func (tc *TokenCounter) Name() string {
	return Tokens.String() + " (" + encodingName + ")"
}

// encode tokenizes text with special tokens treated as plain text.
func (tc *TokenCounter) encode(text string) []int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.encoding.Encode(text, nil, nil)
}

// TruncatePair shortens a text pair until their combined token count fits maxTokens.
// Tokens are removed from whichever text is currently longer, one at a time, so the
// shorter text is only cut once both are the same length.
func (tc *TokenCounter) TruncatePair(first, second string, maxTokens int) (string, string) {
	if maxTokens <= 0 {
		return "", ""
	}

	a, b := tc.encode(first), tc.encode(second)
	if len(a)+len(b) <= maxTokens {
		return first, second
	}

	keepA, keepB := len(a), len(b)
	for keepA+keepB > maxTokens {
		if keepA > keepB {
			keepA--
		} else {
			keepB--
		}
	}

	slog.Debug("Truncated text pair", "firstTokens", len(a), "secondTokens", len(b), "keptFirst", keepA, "keptSecond", keepB)

	return tc.decode(a[:keepA]), tc.decode(b[:keepB])
}

// decode turns tokens back into text. A cut can fall inside a multi-byte character, whose
// dangling bytes are dropped.
func (tc *TokenCounter) decode(tokens []int) string {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return strings.ToValidUTF8(tc.encoding.Decode(tokens), "")
}
