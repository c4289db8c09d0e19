// Package husk prepares Houdini husk command lines for a task
package husk

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/go-deadlinejob/internal/plugins"
)

// ExpandArguments fills the frame placeholders of a husk argument string.
// The frame arguments are expected to be part of the submitted arguments,
// for example "--frame <FRAME> --frame-count <FRAME_COUNT>", so pre and post
// task scripts see the same values.
func ExpandArguments(arguments string, r plugins.FrameRange) string {
	tokens := append([]plugins.Token{
		{Name: "FRAME", Value: strconv.Itoa(r.Start)},
	}, plugins.FrameTokens(r)...)
	return plugins.ExpandTokens(strings.TrimSpace(arguments), tokens)
}

// ExecutableKey returns the plugin configuration entry holding the husk
// executable for a Houdini version, e.g. "20.5" -> "Houdini20_5_Husk_Executable"
func ExecutableKey(version string) string {
	return "Houdini" + strings.ReplaceAll(version, ".", "_") + "_Husk_Executable"
}
