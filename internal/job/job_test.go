package job

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/pkg/framelist"
)

func sampleRecord() deadline.JobRecord {
	rec := deadline.JobRecord{
		ID:      "5f1a",
		Stat:    deadline.StatusActive,
		Plug:    "HoudiniHusk",
		OutDir:  []string{"/shows/abc/render"},
		OutFile: []string{"beauty.####.exr"},
		Props: deadline.JobProps{
			Name:     "shot010_beauty",
			Batch:    "shot010",
			Pri:      50,
			User:     "alex",
			Dept:     "lighting",
			Frames:   "1-10x2,20",
			Chunk:    2,
			Env:      map[string]string{DefaultRedisKeysEnv: "cache:a, cache:b,,"},
			ExDic:    map[string]string{"shot": "010"},
			Pool:     "gpu",
			Limits:   []string{"houdini", "karma"},
			MachLmt:  4,
			Conc:     1,
			PlugInfo: map[string]string{"SceneFile": "/shows/abc/shot010.usd"},
		},
	}
	rec.Props.Ex2 = "review"
	return rec
}

func TestFromRecord(t *testing.T) {
	j, err := FromRecord(sampleRecord(), framelist.Default)
	require.NoError(t, err)

	assert.Equal(t, "5f1a", j.ID)
	assert.Equal(t, "shot010_beauty", j.Name)
	assert.Equal(t, "HoudiniHusk", j.Plugin)
	assert.Equal(t, []int{1, 3, 5, 7, 9, 20}, j.Frames)
	assert.Equal(t, 2, j.FramesPerTask)
	assert.Equal(t, "review", j.ExtraInfo[2])
	assert.Equal(t, []string{"houdini", "karma"}, j.LimitGroups)
	assert.Equal(t, []string{"cache:a", "cache:b"}, j.RedisKeys(DefaultRedisKeysEnv))
	assert.Empty(t, j.RedisKeys("MISSING"))
}

func TestFromRecordInvalidFrames(t *testing.T) {
	rec := sampleRecord()
	rec.Props.Frames = "1-10x0"

	_, err := FromRecord(rec, framelist.Default)
	require.Error(t, err)
	assert.True(t, errors.Is(err, framelist.ErrZeroStep))
	assert.Contains(t, err.Error(), "invalid frame range: 1-10x0")
	assert.Contains(t, err.Error(), "job 5f1a")
}

func TestRecordRoundTrip(t *testing.T) {
	codec := framelist.Default
	j, err := FromRecord(sampleRecord(), codec)
	require.NoError(t, err)

	rec := j.Record(codec)
	assert.Equal(t, "1-9x2,20", rec.Props.Frames)
	assert.Equal(t, "review", rec.Props.Ex2)
	assert.Equal(t, 3, rec.Props.Tasks)

	again, err := FromRecord(rec, codec)
	require.NoError(t, err)
	assert.Equal(t, j, again)
}

func TestSetFrameString(t *testing.T) {
	j := &Job{Frames: []int{1, 2, 3}}

	require.NoError(t, j.SetFrameString("10-1", framelist.Default))
	assert.Equal(t, []int{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, j.Frames)
	assert.Equal(t, "10-1", j.FrameString(framelist.Default))

	err := j.SetFrameString("1,two,3", framelist.Default)
	require.Error(t, err)
	assert.Len(t, j.Frames, 10, "frames must be unchanged after a failed update")
}

func TestSubmission(t *testing.T) {
	j, err := FromRecord(sampleRecord(), framelist.Default)
	require.NoError(t, err)
	j.Environment["ARNOLD_LICENSE"] = "5053@lic"

	sub := j.Submission(framelist.Default)
	info := sub.JobInfo

	assert.Equal(t, "shot010_beauty", info["Name"])
	assert.Equal(t, "1-9x2,20", info["Frames"])
	assert.Equal(t, "2", info["ChunkSize"])
	assert.Equal(t, "false", info["Sequential"])
	assert.Equal(t, "houdini,karma", info["LimitGroups"])
	assert.Equal(t, "ARNOLD_LICENSE=5053@lic", info["EnvironmentKeyValue0"])
	assert.Equal(t, DefaultRedisKeysEnv+"=cache:a, cache:b,,", info["EnvironmentKeyValue1"])
	assert.Equal(t, "shot=010", info["ExtraInfoKeyValue0"])
	assert.Equal(t, "review", info["ExtraInfo2"])
	assert.NotContains(t, info, "ExtraInfo0")
	assert.NotContains(t, info, "InitialStatus")
	assert.Equal(t, "/shows/abc/render", info["OutputDirectory0"])
	assert.Equal(t, "beauty.####.exr", info["OutputFilename0"])
	assert.Equal(t, "/shows/abc/shot010.usd", sub.PluginInfo["SceneFile"])
	assert.NotNil(t, sub.AuxFiles)
}

func TestSubmissionDefaults(t *testing.T) {
	j := &Job{Name: "empty", Plugin: "Command", Status: deadline.StatusSuspended}

	info := j.Submission(framelist.Default).JobInfo
	assert.Equal(t, "1", info["ChunkSize"])
	assert.Equal(t, "1", info["ConcurrentTasks"])
	assert.Equal(t, "", info["Frames"])
	assert.Equal(t, "Suspended", info["InitialStatus"])
}

func TestWriteSubmissionFiles(t *testing.T) {
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "job_info.job")
	pluginPath := filepath.Join(dir, "plugin_info.job")

	j := &Job{
		Name:          "shot020",
		Plugin:        "Command",
		Frames:        []int{1, 2, 3, 4},
		FramesPerTask: 2,
		Sequential:    true,
		PluginInfo:    map[string]string{"Executable": "/bin/echo", "Arguments": "<FRAME>"},
	}
	require.NoError(t, j.WriteSubmissionFiles(jobPath, pluginPath, framelist.Default))

	jobData, err := os.ReadFile(jobPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(jobData)), "\n")
	assert.Contains(t, lines, "Frames=1-4")
	assert.Contains(t, lines, "Sequential=true")
	assert.Contains(t, lines, "Protected=false")
	assert.IsIncreasing(t, lines)

	pluginData, err := os.ReadFile(pluginPath)
	require.NoError(t, err)
	assert.Equal(t, "Arguments=<FRAME>\nExecutable=/bin/echo\n", string(pluginData))
}

func TestWriteSubmissionFilesBadPath(t *testing.T) {
	j := &Job{Name: "x", Plugin: "Command"}
	err := j.WriteSubmissionFiles(filepath.Join(t.TempDir(), "missing", "job.job"), "plugin.job", framelist.Default)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write job info file")
}

func TestEnvToBool(t *testing.T) {
	for _, v := range []string{"True", "true", "1", "Yes", "yes"} {
		assert.True(t, EnvToBool(v), v)
	}
	for _, v := range []string{"", "False", "no", "TRUE", "2"} {
		assert.False(t, EnvToBool(v), v)
	}
	assert.Equal(t, "True", BoolToEnv(true))
	assert.Equal(t, "False", BoolToEnv(false))
	assert.True(t, EnvToBool(BoolToEnv(true)))
}
