package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/go-deadlinejob/internal/job"
)

func newFramesCommand(ctx *commandContext) *cobra.Command {
	var ordering string

	framesCmd := &cobra.Command{
		Use:   "frames",
		Short: "Parse and format Deadline frame strings",
	}
	framesCmd.PersistentFlags().StringVar(&ordering, "ordering", "", "Range direction rule (lexical or numeric); defaults to config")

	framesCmd.AddCommand(newFramesParseCommand(ctx, &ordering))
	framesCmd.AddCommand(newFramesFormatCommand(ctx, &ordering))
	framesCmd.AddCommand(newFramesTasksCommand(ctx, &ordering))

	return framesCmd
}

func newFramesParseCommand(ctx *commandContext, ordering *string) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <frame string>...",
		Short: "Expand a frame string into frame numbers",
		Example: `  deadlinejob frames parse 1-10x2,20
  deadlinejob frames parse "1001-1100 5000"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := ctx.codec(*ordering)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			frames, err := codec.Parse(text)
			if err != nil {
				return err
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, map[string]any{
					"frames":    frames,
					"count":     len(frames),
					"canonical": codec.Format(frames),
				})
			}

			out := cmd.OutOrStdout()
			for _, f := range frames {
				fmt.Fprintln(out, f)
			}
			return nil
		},
	}
}

func newFramesFormatCommand(ctx *commandContext, ordering *string) *cobra.Command {
	return &cobra.Command{
		Use:   "format [frame]...",
		Short: "Compress frame numbers into a frame string",
		Long:  "Compress frame numbers into the shortest frame string that parses back to them. Without arguments, frame numbers are read from stdin, separated by whitespace or commas.",
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := ctx.codec(*ordering)
			if err != nil {
				return err
			}

			fields := args
			if len(fields) == 0 {
				fields, err = readFields(cmd)
				if err != nil {
					return err
				}
			}

			frames, err := parseFrameNumbers(fields)
			if err != nil {
				return err
			}

			text := codec.Format(frames)
			if ctx.jsonOutput {
				return writeJSON(cmd, map[string]any{"text": text, "count": len(frames)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newFramesTasksCommand(ctx *commandContext, ordering *string) *cobra.Command {
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "tasks <frame string>...",
		Short: "Show how a frame string splits into tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := ctx.codec(*ordering)
			if err != nil {
				return err
			}

			frames, err := codec.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}

			j := &job.Job{Frames: frames, FramesPerTask: chunkSize}
			tasks := j.Tasks()

			if ctx.jsonOutput {
				type taskView struct {
					Index  int    `json:"index"`
					Frames string `json:"frames"`
					First  int    `json:"first"`
					Last   int    `json:"last"`
					Count  int    `json:"count"`
				}
				views := make([]taskView, 0, len(tasks))
				for _, t := range tasks {
					views = append(views, taskView{t.Index, t.FrameString(codec), t.First(), t.Last(), len(t.Frames)})
				}
				return writeJSON(cmd, views)
			}

			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				rows = append(rows, []string{
					strconv.Itoa(t.Index),
					t.FrameString(codec),
					strconv.Itoa(t.First()),
					strconv.Itoa(t.Last()),
					strconv.Itoa(len(t.Frames)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Task", "Frames", "First", "Last", "Count"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&chunkSize, "chunk-size", "n", 1, "Frames per task")

	return cmd
}

func readFields(cmd *cobra.Command) ([]string, error) {
	var fields []string
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		fields = append(fields, strings.FieldsFunc(scanner.Text(), func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	return fields, nil
}

func parseFrameNumbers(fields []string) ([]int, error) {
	frames := make([]int, 0, len(fields))
	for _, f := range fields {
		for _, part := range strings.Split(f, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid frame number %q", part)
			}
			frames = append(frames, n)
		}
	}
	return frames, nil
}
