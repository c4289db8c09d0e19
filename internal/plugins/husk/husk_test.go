package husk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/go-deadlinejob/internal/job"
	"github.com/jmylchreest/go-deadlinejob/internal/plugins"
)

func TestExpandArguments(t *testing.T) {
	tests := []struct {
		name string
		args string
		r    plugins.FrameRange
		want string
	}{
		{
			name: "frame arguments",
			args: "  --frame <FRAME> --frame-count <FRAME_COUNT> --frame-inc <FRAME_INCREMENT> shot.usd ",
			r:    plugins.FrameRange{Start: 1001, End: 1010, Increment: 1},
			want: "--frame 1001 --frame-count 10 --frame-inc 1 shot.usd",
		},
		{
			name: "case insensitive",
			args: "-f <frame> -n <Frame_Count>",
			r:    plugins.FrameRange{Start: 5, End: 5, Increment: 1},
			want: "-f 5 -n 1",
		},
		{
			name: "quotes",
			args: "-o <QUOTE>/renders/my shot.$F4.exr<QUOTE>",
			r:    plugins.FrameRange{Start: 1, End: 1, Increment: 1},
			want: `-o "/renders/my shot.$F4.exr"`,
		},
		{
			name: "stepped task",
			args: "--frame <FRAME> --frame-count <FRAME_COUNT> --frame-inc <FRAME_INCREMENT>",
			r:    plugins.RangeFromTask(job.Task{Frames: []int{1, 3, 5, 7}}),
			want: "--frame 1 --frame-count 4 --frame-inc 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandArguments(tt.args, tt.r))
		})
	}
}

func TestExecutableKey(t *testing.T) {
	assert.Equal(t, "Houdini20_5_Husk_Executable", ExecutableKey("20.5"))
	assert.Equal(t, "Houdini19_Husk_Executable", ExecutableKey("19"))
}
