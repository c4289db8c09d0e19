package framelist

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// expandCeiling bounds a single expansion when no MaxFrames is configured
const expandCeiling = math.MaxInt32

// Parse expands a frame string into the ordered list of frames it denotes.
// Token order is preserved and duplicates are kept. Parse stops at the first
// bad token and returns a *FormatError describing it.
func (c Codec) Parse(s string) ([]int, error) {
	normalized := strings.ReplaceAll(s, "step", "x")
	normalized = strings.ReplaceAll(normalized, "by", "x")
	normalized = strings.ReplaceAll(normalized, "every", "x")

	tokens := strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ',' || r == ' '
	})

	frames := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		var err error
		frames, err = c.expand(frames, tok)
		if err != nil {
			return nil, &FormatError{Input: s, Token: tok, Err: err}
		}
	}
	return frames, nil
}

// expand appends the frames of a single token. The checks run in priority
// order: colon triple, stepped dash range, plain dash range, single frame.
func (c Codec) expand(frames []int, tok string) ([]int, error) {
	colons := strings.Count(tok, ":")
	dashes := strings.Count(tok, "-")

	switch {
	case colons == 2:
		parts := strings.Split(tok, ":")
		start, err := atoi(parts[0])
		if err != nil {
			return frames, err
		}
		end, err := atoi(parts[1])
		if err != nil {
			return frames, err
		}
		step, err := atoi(parts[2])
		if err != nil {
			return frames, err
		}
		stop, err := inclusiveStop(end)
		if err != nil {
			return frames, err
		}
		return c.appendRange(frames, start, stop, step, false)

	case dashes == 1 && (colons == 1 || strings.Count(tok, "x") == 1):
		// "1-10x2" and "1-10:2" are the same range
		parts := strings.Split(strings.ReplaceAll(tok, ":", "x"), "x")
		if len(parts) != 2 {
			return frames, fmt.Errorf("%w: expected start-end followed by one step", ErrMalformed)
		}
		step, err := atoi(parts[1])
		if err != nil {
			return frames, err
		}
		return c.appendDashRange(frames, parts[0], step)

	case dashes == 1:
		return c.appendDashRange(frames, tok, 1)

	default:
		v, err := atoi(tok)
		if err != nil {
			return frames, err
		}
		if err := c.checkLimit(len(frames), 1); err != nil {
			return frames, err
		}
		return append(frames, v), nil
	}
}

// appendDashRange expands "start-end" with the given step. A descending range
// yields the ascending range from end to start, reversed.
func (c Codec) appendDashRange(frames []int, rangeText string, step int) ([]int, error) {
	bounds := strings.Split(rangeText, "-")
	if len(bounds) != 2 {
		return frames, fmt.Errorf("%w: expected start-end", ErrMalformed)
	}
	start, err := atoi(bounds[0])
	if err != nil {
		return frames, err
	}
	end, err := atoi(bounds[1])
	if err != nil {
		return frames, err
	}

	if c.descending(bounds[0], bounds[1], start, end) {
		stop, err := inclusiveStop(start)
		if err != nil {
			return frames, err
		}
		return c.appendRange(frames, end, stop, step, true)
	}

	stop, err := inclusiveStop(end)
	if err != nil {
		return frames, err
	}
	return c.appendRange(frames, start, stop, step, false)
}

// appendRange appends the values start, start+step, ... stopping before stop,
// optionally in reverse. Negative steps count down towards stop.
func (c Codec) appendRange(frames []int, start, stop, step int, reverse bool) ([]int, error) {
	if step == 0 {
		return frames, ErrZeroStep
	}

	n := rangeLen(start, stop, step)
	if n > expandCeiling {
		return frames, fmt.Errorf("%w: range covers %d frames", ErrTooManyFrames, n)
	}
	if err := c.checkLimit(len(frames), int(n)); err != nil {
		return frames, err
	}

	if reverse {
		for i := int(n) - 1; i >= 0; i-- {
			frames = append(frames, start+i*step)
		}
		return frames, nil
	}
	for i := 0; i < int(n); i++ {
		frames = append(frames, start+i*step)
	}
	return frames, nil
}

func (c Codec) checkLimit(have, adding int) error {
	if c.MaxFrames > 0 && have+adding > c.MaxFrames {
		return fmt.Errorf("%w: limit is %d", ErrTooManyFrames, c.MaxFrames)
	}
	return nil
}

// rangeLen counts the values of range(start, stop, step). step must not be zero.
func rangeLen(start, stop, step int) uint64 {
	switch {
	case step > 0 && start < stop:
		return (uint64(stop)-uint64(start)-1)/uint64(step) + 1
	case step < 0 && start > stop:
		return (uint64(start)-uint64(stop)-1)/uint64(-step) + 1
	}
	return 0
}

func inclusiveStop(end int) (int, error) {
	if end == math.MaxInt {
		return 0, fmt.Errorf("%w: frame %d out of range", ErrMalformed, end)
	}
	return end + 1, nil
}

func atoi(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrMalformed, s)
	}
	return v, nil
}
