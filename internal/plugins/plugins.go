// Package plugins holds the pieces shared by the render plugin helpers: the
// frame range a task hands to a renderer, token expansion in argument
// strings and the renderer stdout parser.
package plugins

import (
	"regexp"
	"strconv"

	"github.com/jmylchreest/go-deadlinejob/internal/job"
)

// FrameRange is the contiguous block of frames a renderer is asked for
type FrameRange struct {
	Start     int
	End       int
	Increment int
}

// RangeFromTask derives the renderer frame range for a task. Tasks whose
// frames share a positive stride keep it as the increment; anything else
// is rendered start to end one frame at a time.
func RangeFromTask(t job.Task) FrameRange {
	r := FrameRange{Start: t.First(), End: t.Last(), Increment: 1}
	if len(t.Frames) < 2 {
		return r
	}

	stride := t.Frames[1] - t.Frames[0]
	if stride <= 0 {
		return r
	}
	for i := 2; i < len(t.Frames); i++ {
		if t.Frames[i]-t.Frames[i-1] != stride {
			return r
		}
	}
	r.Increment = stride
	return r
}

// Count returns the number of frames rendered for the range
func (r FrameRange) Count() int {
	inc := max(r.Increment, 1)
	return max(0, r.End-r.Start)/inc + 1
}

// ExpandTokens replaces each <NAME> token, matched case-insensitively, with
// its value. Tokens are applied in the order given.
func ExpandTokens(text string, tokens []Token) string {
	for _, tok := range tokens {
		re := regexp.MustCompile(`(?i)<` + regexp.QuoteMeta(tok.Name) + `>`)
		text = re.ReplaceAllLiteralString(text, tok.Value)
	}
	return text
}

// Token is a named placeholder and its replacement
type Token struct {
	Name  string
	Value string
}

// FrameTokens returns the placeholders every plugin understands for a range
func FrameTokens(r FrameRange) []Token {
	return []Token{
		{Name: "FRAME_START", Value: strconv.Itoa(r.Start)},
		{Name: "FRAME_END", Value: strconv.Itoa(r.End)},
		{Name: "FRAME_COUNT", Value: strconv.Itoa(r.Count())},
		{Name: "FRAME_INCREMENT", Value: strconv.Itoa(max(r.Increment, 1))},
		{Name: "QUOTE", Value: `"`},
	}
}
