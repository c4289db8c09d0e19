// Package framelist converts between Deadline frame strings and explicit frame lists.
//
// A frame string is a comma or space separated list of tokens. Each token is a
// single frame ("1001"), an inclusive range ("1001-1010"), a stepped range
// ("1-10x2", where "step", "by" and "every" are accepted for "x") or a
// colon triple ("1:10:2"). Parse expands a frame string into the ordered list of
// frames it denotes, duplicates included. Format compresses a list of frames
// back into the shortest frame string that Parse turns into the same list.
//
// The direction of a dash range depends on the codec's Ordering: lexical
// ordering compares the endpoint texts the way Deadline does, so "9-10"
// denotes no frames at all. Format only emits a dash range that reads back the
// same way; negative frames, which a dash cannot carry, are written as colon
// triples, including a lone negative frame ("-5:-5:1").
//
//	frames, err := framelist.Parse("1-10x2,20")  // [1 3 5 7 9 20]
//	text := framelist.Format(frames)             // "1-9x2,20"
package framelist

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrMalformed is returned for tokens that are not an integer or a range
	ErrMalformed = errors.New("malformed token")

	// ErrZeroStep is returned for stepped ranges with a step of zero
	ErrZeroStep = errors.New("step must not be zero")

	// ErrTooManyFrames is returned when a frame string expands past Codec.MaxFrames
	ErrTooManyFrames = errors.New("too many frames")
)

// FormatError reports a frame string that could not be parsed
type FormatError struct {
	Input string // the complete frame string
	Token string // the offending token
	Err   error
}

func (e *FormatError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("invalid frame range: %s: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("invalid frame range: %s: token %q: %v", e.Input, e.Token, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Ordering selects how the direction of a dash range is decided
type Ordering int

const (
	// OrderLexical compares range endpoints as text, the way Deadline's own
	// submission scripts do. "10-1" counts down, and so does "9-10", which
	// therefore expands to nothing.
	OrderLexical Ordering = iota

	// OrderNumeric compares range endpoints as integers
	OrderNumeric
)

// ParseOrdering maps a config value to an Ordering
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lexical":
		return OrderLexical, nil
	case "numeric":
		return OrderNumeric, nil
	default:
		return OrderLexical, fmt.Errorf("unknown frame ordering %q (want lexical or numeric)", s)
	}
}

func (o Ordering) String() string {
	switch o {
	case OrderLexical:
		return "lexical"
	case OrderNumeric:
		return "numeric"
	default:
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
}

// Codec holds the options shared by Parse and Format. The zero value uses
// lexical ordering and no frame limit. A Codec is safe for concurrent use.
type Codec struct {
	Ordering Ordering

	// MaxFrames caps how many frames one Parse call may produce. Zero means no limit.
	MaxFrames int
}

// Default is the codec used by the package-level Parse and Format
var Default = Codec{}

// Parse expands a frame string using the Default codec
func Parse(s string) ([]int, error) {
	return Default.Parse(s)
}

// Format compresses a frame list using the Default codec
func Format(frames []int) string {
	return Default.Format(frames)
}

// descending reports whether a dash range counts down
func (c Codec) descending(startText, endText string, start, end int) bool {
	if c.Ordering == OrderNumeric {
		return end < start
	}
	return endText < startText
}

// OrderingSensitive reports whether s expands to different frames under
// lexical and numeric ordering. Such a string means something else to a
// reader than to Deadline and should not be rewritten automatically.
func (c Codec) OrderingSensitive(s string) bool {
	lexical := c
	lexical.Ordering = OrderLexical
	numeric := c
	numeric.Ordering = OrderNumeric

	a, errA := lexical.Parse(s)
	b, errB := numeric.Parse(s)
	if errA != nil || errB != nil {
		return (errA == nil) != (errB == nil)
	}
	return !slices.Equal(a, b)
}
