package framelist

import (
	"math"
	"strconv"
	"strings"
)

// Format compresses a frame list into a frame string. Consecutive frames that
// share a constant stride are written as a single range token; everything
// else is listed frame by frame. Parsing the result with the same codec
// returns the original list.
func (c Codec) Format(frames []int) string {
	switch len(frames) {
	case 0:
		return ""
	case 1:
		return literal(frames[0])
	case 2:
		return literal(frames[0]) + "," + literal(frames[1])
	}

	segments := make([]string, 0, 4)

	// frames[start:end] is the current run, stride its constant difference.
	// The frame that breaks a run seeds the next one.
	for start := 0; start < len(frames); {
		end := start + 1
		stride, ok := 0, false
		if end < len(frames) {
			stride, ok = delta(frames[end], frames[start])
		}
		if !ok {
			segments = appendLiterals(segments, frames[start:end])
			start = end
			continue
		}

		for end++; end < len(frames); end++ {
			if d, ok := delta(frames[end], frames[end-1]); !ok || d != stride {
				break
			}
		}
		segments = c.appendRun(segments, frames[start:end], stride)
		start = end
	}

	return strings.Join(segments, ",")
}

// delta returns b-a, reporting false when the difference overflows an int
func delta(b, a int) (int, bool) {
	d := b - a
	if (b >= 0) != (a >= 0) && (d >= 0) != (b >= 0) {
		return 0, false
	}
	return d, true
}

// appendRun emits one run of frames sharing the given stride
func (c Codec) appendRun(segments []string, run []int, stride int) []string {
	if len(run) == 1 || stride == 0 {
		return appendLiterals(segments, run)
	}

	// A stepped token is no shorter than three listed frames
	if stride != 1 && stride != -1 && len(run) <= 3 {
		return appendLiterals(segments, run)
	}

	if tok, ok := c.rangeToken(run[0], run[len(run)-1], stride); ok {
		return append(segments, tok)
	}
	return appendLiterals(segments, run)
}

// rangeToken renders the run first..last as a single token that parses back
// to the same frames in the same order, if such a token exists.
func (c Codec) rangeToken(first, last, stride int) (string, bool) {
	step := stride
	if step < 0 {
		step = -step
	}

	// The parser cannot stop a range after the largest int
	if first == math.MaxInt || last == math.MaxInt {
		return "", false
	}

	firstText := strconv.Itoa(first)
	lastText := strconv.Itoa(last)

	// Dash ranges cannot carry negative frames and must point the way the
	// parser will read them.
	if first >= 0 && last >= 0 && c.descending(firstText, lastText, first, last) == (stride < 0) {
		if step == 1 {
			return firstText + "-" + lastText, true
		}
		return firstText + "-" + lastText + "x" + strconv.Itoa(step), true
	}

	// Colon triples always count up
	if stride > 0 {
		return firstText + ":" + lastText + ":" + strconv.Itoa(step), true
	}
	return "", false
}

func appendLiterals(segments []string, frames []int) []string {
	for _, f := range frames {
		segments = append(segments, literal(f))
	}
	return segments
}

// literal renders one frame as a token. A bare negative number reads as a
// range with no start, so negative frames use a one-frame colon triple.
func literal(frame int) string {
	if frame < 0 {
		s := strconv.Itoa(frame)
		return s + ":" + s + ":1"
	}
	return strconv.Itoa(frame)
}
