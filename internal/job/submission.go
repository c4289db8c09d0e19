package job

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/pkg/framelist"
)

// Submission builds the job and plugin info dictionaries understood by both
// the Web Service and deadlinecommand submission files
func (j *Job) Submission(codec framelist.Codec) deadline.Submission {
	info := map[string]string{
		"Name":                  j.Name,
		"BatchName":             j.BatchName,
		"Plugin":                j.Plugin,
		"Priority":              strconv.Itoa(j.Priority),
		"Protected":             strconv.FormatBool(j.Protected),
		"UserName":              j.UserName,
		"Department":            j.Department,
		"Comment":               j.Comment,
		"Frames":                j.FrameString(codec),
		"ChunkSize":             strconv.Itoa(j.chunkSize()),
		"Sequential":            strconv.FormatBool(j.Sequential),
		"UseJobEnvironmentOnly": strconv.FormatBool(j.EnvironmentOnly),
		"LimitGroups":           strings.Join(j.LimitGroups, ","),
		"Pool":                  j.Pool,
		"SecondaryPool":         j.SecondaryPool,
		"Group":                 j.Group,
		"MachineLimit":          strconv.Itoa(j.MachineLimit),
		"ConcurrentTasks":       strconv.Itoa(max(j.ConcurrentTasks, 1)),
	}

	if j.Status == deadline.StatusSuspended {
		info["InitialStatus"] = "Suspended"
	}

	for i, key := range sortedKeys(j.Environment) {
		info[fmt.Sprintf("EnvironmentKeyValue%d", i)] = key + "=" + j.Environment[key]
	}
	for i, key := range sortedKeys(j.ExtraInfoKeyValues) {
		info[fmt.Sprintf("ExtraInfoKeyValue%d", i)] = key + "=" + j.ExtraInfoKeyValues[key]
	}
	for i, value := range j.ExtraInfo {
		if value != "" {
			info[fmt.Sprintf("ExtraInfo%d", i)] = value
		}
	}
	for i, dir := range j.OutputDirectories {
		info[fmt.Sprintf("OutputDirectory%d", i)] = dir
	}
	for i, name := range j.OutputFilenames {
		info[fmt.Sprintf("OutputFilename%d", i)] = name
	}

	plugin := make(map[string]string, len(j.PluginInfo))
	for k, v := range j.PluginInfo {
		plugin[k] = v
	}

	return deadline.Submission{
		JobInfo:    info,
		PluginInfo: plugin,
		AuxFiles:   append([]string{}, j.AuxFiles...),
	}
}

// WriteSubmissionFiles writes the job and plugin info files passed to
// deadlinecommand, one sorted key=value line per entry
func (j *Job) WriteSubmissionFiles(jobPath, pluginPath string, codec framelist.Codec) error {
	sub := j.Submission(codec)

	if err := writeKeyValueFile(jobPath, sub.JobInfo); err != nil {
		return fmt.Errorf("write job info file: %w", err)
	}
	if err := writeKeyValueFile(pluginPath, sub.PluginInfo); err != nil {
		return fmt.Errorf("write plugin info file: %w", err)
	}
	return nil
}

func (j *Job) chunkSize() int {
	if j.FramesPerTask < 1 {
		return 1
	}
	return j.FramesPerTask
}

func writeKeyValueFile(path string, values map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, key := range sortedKeys(values) {
		if _, err := fmt.Fprintf(w, "%s=%s\n", key, values[key]); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
