package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/go-deadlinejob/internal/job"
	"github.com/jmylchreest/go-deadlinejob/internal/plugins"
	"github.com/jmylchreest/go-deadlinejob/internal/plugins/command"
	"github.com/jmylchreest/go-deadlinejob/internal/plugins/husk"
)

// taskFlags selects one task of a frame string
type taskFlags struct {
	frames    string
	chunkSize int
	task      int
}

func (f *taskFlags) register(cmd *cobra.Command, required bool) {
	cmd.Flags().StringVar(&f.frames, "frames", "", "Job frame string")
	cmd.Flags().IntVarP(&f.chunkSize, "chunk-size", "n", 1, "Frames per task")
	cmd.Flags().IntVarP(&f.task, "task", "t", 0, "Task index")
	if required {
		_ = cmd.MarkFlagRequired("frames")
	}
}

func (f *taskFlags) frameRange(ctx *commandContext) (plugins.FrameRange, error) {
	codec, err := ctx.codec("")
	if err != nil {
		return plugins.FrameRange{}, err
	}

	frames, err := codec.Parse(f.frames)
	if err != nil {
		return plugins.FrameRange{}, err
	}

	j := &job.Job{Frames: frames, FramesPerTask: f.chunkSize}
	tasks := j.Tasks()
	if f.task < 0 || f.task >= len(tasks) {
		return plugins.FrameRange{}, fmt.Errorf("task %d out of range: job has %d tasks", f.task, len(tasks))
	}
	return plugins.RangeFromTask(tasks[f.task]), nil
}

func newHuskCommand(ctx *commandContext) *cobra.Command {
	huskCmd := &cobra.Command{
		Use:   "husk",
		Short: "Houdini husk render helpers",
	}

	huskCmd.AddCommand(newHuskArgsCommand(ctx))
	huskCmd.AddCommand(newHuskProgressCommand(ctx))

	return huskCmd
}

func newHuskArgsCommand(ctx *commandContext) *cobra.Command {
	var tf taskFlags
	var houdiniVersion string

	cmd := &cobra.Command{
		Use:     "args <arguments>...",
		Short:   "Expand frame placeholders in husk arguments for one task",
		Example: `  deadlinejob husk args --frames 1001-1100 -n 10 -t 2 -- --frame "<FRAME>" --frame-count "<FRAME_COUNT>" scene.usd`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := tf.frameRange(ctx)
			if err != nil {
				return err
			}

			expanded := husk.ExpandArguments(strings.Join(args, " "), r)
			if ctx.jsonOutput {
				out := map[string]any{
					"arguments": expanded,
					"start":     r.Start,
					"end":       r.End,
					"increment": r.Increment,
					"count":     r.Count(),
				}
				if houdiniVersion != "" {
					out["executable_key"] = husk.ExecutableKey(houdiniVersion)
				}
				return writeJSON(cmd, out)
			}

			if houdiniVersion != "" {
				fmt.Fprintln(cmd.OutOrStdout(), husk.ExecutableKey(houdiniVersion))
			}
			fmt.Fprintln(cmd.OutOrStdout(), expanded)
			return nil
		},
	}
	tf.register(cmd, true)
	cmd.Flags().StringVar(&houdiniVersion, "houdini-version", "", "Also print the executable config key for this Houdini version")

	return cmd
}

func newHuskProgressCommand(ctx *commandContext) *cobra.Command {
	var frameCount int
	var arguments string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Follow renderer output on stdin and report task progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := plugins.NewStdoutParser(frameCount)
			parser.Arguments = arguments

			out := cmd.OutOrStdout()
			var failure error

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
			for scanner.Scan() {
				ev := parser.Parse(scanner.Text())
				if ev.Kind == plugins.EventNone {
					continue
				}

				if ctx.jsonOutput {
					if err := writeJSON(cmd, map[string]any{
						"kind":     ev.Kind.String(),
						"message":  ev.Message,
						"progress": ev.Progress,
					}); err != nil {
						return err
					}
				} else {
					fmt.Fprintf(out, "%-14s %6.2f%% %s\n", ev.Kind, parser.Progress(), ev.Message)
				}

				if ev.Kind == plugins.EventError && failure == nil {
					failure = fmt.Errorf("renderer error: %s", ev.Message)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read renderer output: %w", err)
			}

			if !ctx.jsonOutput {
				fmt.Fprintf(out, "completed %d/%d frames, %.2f%%\n", parser.CompletedFrames(), max(frameCount, 1), parser.Progress())
			}
			return failure
		},
	}
	cmd.Flags().IntVar(&frameCount, "frame-count", 1, "Frames rendered by the task")
	cmd.Flags().StringVar(&arguments, "arguments", "", "Renderer arguments, quoted in command line errors")

	return cmd
}

func newCommandLineCommand(ctx *commandContext) *cobra.Command {
	var tf taskFlags

	cmd := &cobra.Command{
		Use:   "command-line <command>...",
		Short: "Split a command line task into executable and arguments",
		Long:  "Expand frame placeholders for one task, then split the command line the way a POSIX shell would. The first word is the executable.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := strings.Join(args, " ")
			if tf.frames != "" {
				r, err := tf.frameRange(ctx)
				if err != nil {
					return err
				}
				line = command.ExpandCommand(line, r)
			}

			exe, arguments, err := command.AlterCommandLine(line)
			if err != nil {
				return err
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, map[string]string{"executable": exe, "arguments": arguments})
			}
			fmt.Fprintln(cmd.OutOrStdout(), exe)
			fmt.Fprintln(cmd.OutOrStdout(), arguments)
			return nil
		},
	}
	tf.register(cmd, false)

	return cmd
}
