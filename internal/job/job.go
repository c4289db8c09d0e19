// Package job holds the in-memory description of a Deadline job and converts it
// to and from the Web Service record, submission files and TOML descriptions.
// Frame strings are only ever handled through a framelist.Codec; inside a Job
// the frames are an explicit ordered list.
package job

import (
	"fmt"
	"maps"

	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/pkg/framelist"
)

// Job is a Deadline job with its frame string expanded
type Job struct {
	ID         string
	Name       string
	BatchName  string
	Plugin     string
	Priority   int
	Protected  bool
	UserName   string
	Department string
	Comment    string
	Status     int

	Frames        []int
	FramesPerTask int
	Sequential    bool

	Environment     map[string]string
	EnvironmentOnly bool

	ExtraInfo          [10]string
	ExtraInfoKeyValues map[string]string
	PluginInfo         map[string]string

	Pool            string
	SecondaryPool   string
	Group           string
	LimitGroups     []string
	MachineLimit    int
	ConcurrentTasks int

	OutputDirectories []string
	OutputFilenames   []string
	AuxFiles          []string
}

// FromRecord builds a Job from a Web Service record, expanding its frame string
func FromRecord(rec deadline.JobRecord, codec framelist.Codec) (*Job, error) {
	frames, err := codec.Parse(rec.Props.Frames)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", rec.ID, err)
	}

	return &Job{
		ID:         rec.ID,
		Name:       rec.Props.Name,
		BatchName:  rec.Props.Batch,
		Plugin:     rec.Plug,
		Priority:   rec.Props.Pri,
		Protected:  rec.Props.Protect,
		UserName:   rec.Props.User,
		Department: rec.Props.Dept,
		Comment:    rec.Props.Cmmt,
		Status:     rec.Stat,

		Frames:        frames,
		FramesPerTask: rec.Props.Chunk,
		Sequential:    rec.Props.Seq,

		Environment:     maps.Clone(rec.Props.Env),
		EnvironmentOnly: rec.Props.EnvOnly,

		ExtraInfo:          rec.Props.ExtraInfo(),
		ExtraInfoKeyValues: maps.Clone(rec.Props.ExDic),
		PluginInfo:         maps.Clone(rec.Props.PlugInfo),

		Pool:            rec.Props.Pool,
		SecondaryPool:   rec.Props.SecPool,
		Group:           rec.Props.Grp,
		LimitGroups:     append([]string(nil), rec.Props.Limits...),
		MachineLimit:    rec.Props.MachLmt,
		ConcurrentTasks: rec.Props.Conc,

		OutputDirectories: append([]string(nil), rec.OutDir...),
		OutputFilenames:   append([]string(nil), rec.OutFile...),
		AuxFiles:          append([]string(nil), rec.Aux...),
	}, nil
}

// Record converts the Job back to the Web Service shape
func (j *Job) Record(codec framelist.Codec) deadline.JobRecord {
	rec := deadline.JobRecord{
		ID:      j.ID,
		Stat:    j.Status,
		Plug:    j.Plugin,
		OutDir:  j.OutputDirectories,
		OutFile: j.OutputFilenames,
		Aux:     j.AuxFiles,
		Props: deadline.JobProps{
			Name:     j.Name,
			Batch:    j.BatchName,
			Pri:      j.Priority,
			Protect:  j.Protected,
			User:     j.UserName,
			Dept:     j.Department,
			Cmmt:     j.Comment,
			Frames:   j.FrameString(codec),
			Chunk:    j.FramesPerTask,
			Seq:      j.Sequential,
			Env:      j.Environment,
			EnvOnly:  j.EnvironmentOnly,
			ExDic:    j.ExtraInfoKeyValues,
			Pool:     j.Pool,
			SecPool:  j.SecondaryPool,
			Grp:      j.Group,
			Limits:   j.LimitGroups,
			MachLmt:  j.MachineLimit,
			Conc:     j.ConcurrentTasks,
			PlugInfo: j.PluginInfo,
			Tasks:    len(j.Tasks()),
		},
	}
	rec.Props.SetExtraInfo(j.ExtraInfo)
	return rec
}

// FrameString returns the canonical frame string for the job's frames
func (j *Job) FrameString(codec framelist.Codec) string {
	return codec.Format(j.Frames)
}

// SetFrameString replaces the job's frames. The job is left untouched on error.
func (j *Job) SetFrameString(text string, codec framelist.Codec) error {
	frames, err := codec.Parse(text)
	if err != nil {
		return err
	}
	j.Frames = frames
	return nil
}

// RedisKeys returns the Redis keys listed in the given environment entry
func (j *Job) RedisKeys(envKey string) []string {
	return SplitList(j.Environment[envKey])
}
