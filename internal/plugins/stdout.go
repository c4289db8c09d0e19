package plugins

import (
	"regexp"
	"strconv"
	"strings"
)

// EventKind classifies a renderer stdout line
type EventKind int

const (
	EventNone EventKind = iota
	EventProgress
	EventError
	EventFrameComplete
	EventDone
	EventRopType
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventError:
		return "error"
	case EventFrameComplete:
		return "frame_complete"
	case EventDone:
		return "done"
	case EventRopType:
		return "rop_type"
	default:
		return "none"
	}
}

// Event is the outcome of feeding one line to a StdoutParser
type Event struct {
	Kind     EventKind
	Message  string
	Progress float64
}

type lineHandler struct {
	re     *regexp.Regexp
	handle func(p *StdoutParser, line string, match []string) Event
}

// handlers run in order and the first match wins, so the specific error
// patterns come before the generic "Error:" one
var handlers = []lineHandler{
	{regexp.MustCompile(`Progress: (\d+)%`), (*StdoutParser).overallProgress},
	{regexp.MustCompile(`(Couldn't find renderer.*)`), (*StdoutParser).fail},
	{regexp.MustCompile(`(Error: Unknown option:.*)`), (*StdoutParser).badCommandLine},
	{regexp.MustCompile(`(Error: .*)`), (*StdoutParser).fail},
	{regexp.MustCompile(`(ERROR\s*\|.*)`), (*StdoutParser).fail},
	{regexp.MustCompile(`(\[Error\].*)`), (*StdoutParser).fail},
	{regexp.MustCompile(`(No licenses could be found to run this application)`), (*StdoutParser).fail},
	{regexp.MustCompile(`(License error: No license found)`), (*StdoutParser).fail},
	{regexp.MustCompile(`ALF_PROGRESS ([0-9]+)%`), (*StdoutParser).frameProgress},
	{regexp.MustCompile(`Render Time:`), (*StdoutParser).frameComplete},
	{regexp.MustCompile(`Finished Rendering`), (*StdoutParser).done},
	{regexp.MustCompile(`ROP type: (.*)`), (*StdoutParser).ropType},
	{regexp.MustCompile(`(\d+)% done`), (*StdoutParser).frameProgress},
	{regexp.MustCompile(`\[render progress\] ---[ ]+(\d+) percent`), (*StdoutParser).frameProgress},
	{regexp.MustCompile(`RMAN_PROGRESS *([0-9]+)%`), (*StdoutParser).frameProgress},
}

// StdoutParser tracks task progress from renderer output. It is not safe
// for concurrent use; feed it lines from a single reader.
type StdoutParser struct {
	// Arguments is quoted back in bad command line errors
	Arguments string

	frameCount  int
	completed   int
	progress    float64
	ropTypeName string
}

// NewStdoutParser creates a parser for a task rendering frameCount frames
func NewStdoutParser(frameCount int) *StdoutParser {
	return &StdoutParser{frameCount: max(frameCount, 1)}
}

// Parse classifies one line of output and updates the running progress
func (p *StdoutParser) Parse(line string) Event {
	line = strings.TrimRight(line, "\r\n")
	for _, h := range handlers {
		if match := h.re.FindStringSubmatch(line); match != nil {
			return h.handle(p, line, match)
		}
	}
	return Event{Kind: EventNone}
}

// Progress returns the overall task progress in percent
func (p *StdoutParser) Progress() float64 {
	return p.progress
}

// CompletedFrames returns the number of frames reported as rendered
func (p *StdoutParser) CompletedFrames() int {
	return p.completed
}

// RopType returns the ROP type reported by the renderer, if any
func (p *StdoutParser) RopType() string {
	return p.ropTypeName
}

func (p *StdoutParser) setProgress(v float64) Event {
	p.progress = min(max(v, 0), 100)
	return Event{Kind: EventProgress, Progress: p.progress}
}

func (p *StdoutParser) overallProgress(_ string, match []string) Event {
	v, _ := strconv.ParseFloat(match[1], 64)
	return p.setProgress(v)
}

// frameProgress combines finished frames with the current frame's percentage
func (p *StdoutParser) frameProgress(_ string, match []string) Event {
	current, _ := strconv.ParseFloat(match[1], 64)
	return p.setProgress((float64(p.completed)*100 + current) / float64(p.frameCount))
}

func (p *StdoutParser) frameComplete(_ string, _ []string) Event {
	p.completed = min(p.completed+1, p.frameCount)
	ev := p.setProgress(float64(p.completed) * 100 / float64(p.frameCount))
	ev.Kind = EventFrameComplete
	return ev
}

func (p *StdoutParser) done(_ string, _ []string) Event {
	p.completed = p.frameCount
	ev := p.setProgress(100)
	ev.Kind = EventDone
	ev.Message = "Finished Render"
	return ev
}

func (p *StdoutParser) ropType(_ string, match []string) Event {
	p.ropTypeName = strings.TrimSpace(match[1])
	return Event{Kind: EventRopType, Message: p.ropTypeName}
}

func (p *StdoutParser) fail(_ string, match []string) Event {
	return Event{Kind: EventError, Message: match[1]}
}

func (p *StdoutParser) badCommandLine(_ string, match []string) Event {
	return Event{
		Kind:    EventError,
		Message: "Bad command line: " + p.Arguments + "\nRenderer error: " + match[1],
	}
}
