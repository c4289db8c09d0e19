// Package command prepares generic command line tasks. The submitted command
// carries its own executable as the first word.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/jmylchreest/go-deadlinejob/internal/plugins"
)

// ErrEmptyCommand is returned when a command line has no executable
var ErrEmptyCommand = errors.New("empty command line")

// ExpandCommand fills the frame placeholders of a submitted command
func ExpandCommand(command string, r plugins.FrameRange) string {
	return plugins.ExpandTokens(strings.TrimSpace(command), plugins.FrameTokens(r))
}

// AlterCommandLine splits a command the way a POSIX shell would and returns
// the first word as the executable and the rest, re-quoted, as its arguments
func AlterCommandLine(command string) (executable, arguments string, err error) {
	words, err := shellquote.Split(command)
	if err != nil {
		return "", "", fmt.Errorf("split command line %q: %w", command, err)
	}
	if len(words) == 0 {
		return "", "", ErrEmptyCommand
	}
	return words[0], shellquote.Join(words[1:]...), nil
}
