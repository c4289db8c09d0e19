package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/internal/job"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	var instance string

	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect and update jobs on a Deadline Web Service",
	}
	jobCmd.PersistentFlags().StringVarP(&instance, "instance", "i", "", "Instance name (default: first enabled)")

	jobCmd.AddCommand(newJobListCommand(ctx, &instance))
	jobCmd.AddCommand(newJobShowCommand(ctx, &instance))
	jobCmd.AddCommand(newJobSetFramesCommand(ctx, &instance))
	jobCmd.AddCommand(newJobExportCommand(ctx, &instance))
	jobCmd.AddCommand(newJobSubmitCommand(ctx, &instance))

	return jobCmd
}

func newJobListCommand(ctx *commandContext, instance *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs and their frame strings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.deadlineClient(*instance)
			if err != nil {
				return err
			}
			defer client.Close()

			records, err := client.GetJobs(cmd.Context())
			if err != nil {
				return err
			}

			if !all {
				records = filterQueued(records)
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, records)
			}

			codec, err := ctx.codec("")
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				tasks := "invalid"
				if j, err := job.FromRecord(rec, codec); err == nil {
					tasks = strconv.Itoa(len(j.Tasks()))
				}
				rows = append(rows, []string{
					rec.ID,
					rec.Props.Name,
					deadline.StatusName(rec.Stat),
					rec.Props.Frames,
					strconv.Itoa(rec.Props.Chunk),
					tasks,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Status", "Frames", "Chunk", "Tasks"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include completed and failed jobs")

	return cmd
}

func filterQueued(records []deadline.JobRecord) []deadline.JobRecord {
	out := make([]deadline.JobRecord, 0, len(records))
	for _, rec := range records {
		switch rec.Stat {
		case deadline.StatusCompleted, deadline.StatusFailed:
			continue
		}
		out = append(out, rec)
	}
	return out
}

func newJobShowCommand(ctx *commandContext, instance *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job id>",
		Short: "Show a job with its expanded frames and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.deadlineClient(*instance)
			if err != nil {
				return err
			}
			defer client.Close()

			rec, err := client.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, rec)
			}

			codec, err := ctx.codec("")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", rec.ID)
			fmt.Fprintf(out, "Name:     %s\n", rec.Props.Name)
			fmt.Fprintf(out, "Batch:    %s\n", rec.Props.Batch)
			fmt.Fprintf(out, "Plugin:   %s\n", rec.Plug)
			fmt.Fprintf(out, "User:     %s\n", rec.Props.User)
			fmt.Fprintf(out, "Status:   %s\n", deadline.StatusName(rec.Stat))
			fmt.Fprintf(out, "Priority: %d\n", rec.Props.Pri)
			fmt.Fprintf(out, "Frames:   %s\n", rec.Props.Frames)

			j, err := job.FromRecord(*rec, codec)
			if err != nil {
				fmt.Fprintf(out, "          %v\n", err)
				return nil
			}

			canonical := j.FrameString(codec)
			if canonical != rec.Props.Frames {
				fmt.Fprintf(out, "          canonical: %s\n", canonical)
			}
			fmt.Fprintf(out, "Count:    %d\n", len(j.Frames))
			fmt.Fprintf(out, "Chunk:    %d\n", j.FramesPerTask)
			fmt.Fprintf(out, "Tasks:    %d\n", len(j.Tasks()))
			return nil
		},
	}
}

func newJobSetFramesCommand(ctx *commandContext, instance *string) *cobra.Command {
	var chunkSize int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "set-frames <job id> <frame string>...",
		Short: "Replace a job's frames, stored in canonical form",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := ctx.codec("")
			if err != nil {
				return err
			}

			text := strings.Join(args[1:], " ")
			frames, err := codec.Parse(text)
			if err != nil {
				return err
			}
			if codec.OrderingSensitive(text) {
				return fmt.Errorf("ambiguous frame string %q: lexical and numeric ordering read it differently, list the frames instead", text)
			}
			if len(frames) == 0 {
				return fmt.Errorf("frame string %q contains no frames", text)
			}
			canonical := codec.Format(frames)

			client, err := ctx.deadlineClient(*instance)
			if err != nil {
				return err
			}
			defer client.Close()

			if chunkSize < 1 {
				rec, err := client.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				chunkSize = max(rec.Props.Chunk, 1)
			}

			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "would set job %s frames to %s (chunk size %d)\n", args[0], canonical, chunkSize)
				return nil
			}

			if err := client.SetJobFrames(cmd.Context(), args[0], canonical, chunkSize); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s frames set to %s (chunk size %d)\n", args[0], canonical, chunkSize)
			return nil
		},
	}
	cmd.Flags().IntVarP(&chunkSize, "chunk-size", "n", 0, "Frames per task (default: keep current)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the change without applying it")

	return cmd
}

func newJobExportCommand(ctx *commandContext, instance *string) *cobra.Command {
	var format string
	var jobFile string
	var pluginFile string

	cmd := &cobra.Command{
		Use:   "export <job id>",
		Short: "Export a job as TOML, JSON or submission files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := ctx.codec("")
			if err != nil {
				return err
			}

			client, err := ctx.deadlineClient(*instance)
			if err != nil {
				return err
			}
			defer client.Close()

			rec, err := client.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			j, err := job.FromRecord(*rec, codec)
			if err != nil {
				return err
			}

			switch format {
			case "toml":
				data, err := j.MarshalTOML(codec)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			case "json":
				return writeJSON(cmd, j.Record(codec))
			case "submission":
				if jobFile == "" || pluginFile == "" {
					return errors.New("--job-file and --plugin-file are required for submission export")
				}
				if err := j.WriteSubmissionFiles(jobFile, pluginFile, codec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", jobFile, pluginFile)
				return nil
			default:
				return fmt.Errorf("unknown export format %q (want toml, json or submission)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "toml", "Export format (toml, json, submission)")
	cmd.Flags().StringVar(&jobFile, "job-file", "", "Job info file for submission export")
	cmd.Flags().StringVar(&pluginFile, "plugin-file", "", "Plugin info file for submission export")

	return cmd
}

func newJobSubmitCommand(ctx *commandContext, instance *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "submit <job.toml>",
		Short: "Submit a job described in a TOML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := ctx.codec("")
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open job description: %w", err)
			}
			defer f.Close()

			j, err := job.LoadTOML(f, codec)
			if err != nil {
				return err
			}
			sub := j.Submission(codec)

			if dryRun {
				return writeJSON(cmd, sub)
			}

			client, err := ctx.deadlineClient(*instance)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := client.SubmitJob(cmd.Context(), sub)
			if err != nil {
				return err
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, map[string]any{"id": id, "tasks": len(j.Tasks())})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "submitted %s as %s (%d tasks)\n", j.Name, id, len(j.Tasks()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the submission without sending it")

	return cmd
}
