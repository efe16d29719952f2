// Package tokens estimates token counts for context-window accounting.
package tokens

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// DefaultEncoding is used for every model; counts are estimates.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens with a tiktoken encoding, falling back to one token
// per four bytes when the encoding cannot be loaded.
type Counter struct {
	encoding string
	logger   *zap.Logger

	once   sync.Once
	encode func(string) int
}

// NewCounter creates a counter. The encoding is loaded on first use.
func NewCounter(logger *zap.Logger) *Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Counter{encoding: DefaultEncoding, logger: logger}
}

// NewCounterWithFunc creates a counter backed by fn, for tests.
func NewCounterWithFunc(fn func(string) int) *Counter {
	c := &Counter{encoding: "custom", logger: zap.NewNop(), encode: fn}
	c.once.Do(func() {})
	return c
}

func (c *Counter) load() {
	enc, err := tiktoken.GetEncoding(c.encoding)
	if err != nil {
		c.logger.Warn("tiktoken encoding unavailable, estimating tokens from length",
			zap.String("encoding", c.encoding), zap.Error(err))
		c.encode = Estimate
		return
	}
	c.encode = func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}
}

// Count returns the token count of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(c.load)
	return c.encode(text)
}

// Estimate approximates tokens as one per four bytes, rounding up.
func Estimate(text string) int {
	return (len(text) + 3) / 4
}

// Format renders a count for humans: 950, 1.2k, 3.4M.
func Format(n int) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 1_000_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1000)) + "k"
	default:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000_000)) + "M"
	}
}

func trimZero(s string) string {
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		return s[:len(s)-2]
	}
	return s
}
