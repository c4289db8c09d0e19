package job

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/pkg/framelist"
)

// tomlJob is the on-disk job description. Frames are kept as a frame string
// so the files stay short and hand editable.
type tomlJob struct {
	Name          string `toml:"name"`
	BatchName     string `toml:"batch_name,omitempty"`
	Plugin        string `toml:"plugin"`
	Priority      int    `toml:"priority"`
	UserName      string `toml:"user_name,omitempty"`
	Department    string `toml:"department,omitempty"`
	Comment       string `toml:"comment,omitempty"`
	Frames        string `toml:"frames"`
	FramesPerTask int    `toml:"frames_per_task"`
	Sequential    bool   `toml:"sequential,omitempty"`
	Suspended     bool   `toml:"suspended,omitempty"`

	Pool            string   `toml:"pool,omitempty"`
	SecondaryPool   string   `toml:"secondary_pool,omitempty"`
	Group           string   `toml:"group,omitempty"`
	LimitGroups     []string `toml:"limit_groups,omitempty"`
	MachineLimit    int      `toml:"machine_limit,omitempty"`
	ConcurrentTasks int      `toml:"concurrent_tasks,omitempty"`

	OutputDirectories []string `toml:"output_directories,omitempty"`
	OutputFilenames   []string `toml:"output_filenames,omitempty"`
	AuxFiles          []string `toml:"aux_files,omitempty"`

	EnvironmentOnly bool              `toml:"environment_only,omitempty"`
	Environment     map[string]string `toml:"environment,omitempty"`
	ExtraInfo       []string          `toml:"extra_info,omitempty"`
	ExtraInfoKV     map[string]string `toml:"extra_info_key_values,omitempty"`
	PluginInfo      map[string]string `toml:"plugin_info,omitempty"`
}

// MarshalTOML renders the job as a TOML description
func (j *Job) MarshalTOML(codec framelist.Codec) ([]byte, error) {
	doc := tomlJob{
		Name:              j.Name,
		BatchName:         j.BatchName,
		Plugin:            j.Plugin,
		Priority:          j.Priority,
		UserName:          j.UserName,
		Department:        j.Department,
		Comment:           j.Comment,
		Frames:            j.FrameString(codec),
		FramesPerTask:     j.chunkSize(),
		Sequential:        j.Sequential,
		Suspended:         j.Status == deadline.StatusSuspended,
		Pool:              j.Pool,
		SecondaryPool:     j.SecondaryPool,
		Group:             j.Group,
		LimitGroups:       j.LimitGroups,
		MachineLimit:      j.MachineLimit,
		ConcurrentTasks:   j.ConcurrentTasks,
		OutputDirectories: j.OutputDirectories,
		OutputFilenames:   j.OutputFilenames,
		AuxFiles:          j.AuxFiles,
		EnvironmentOnly:   j.EnvironmentOnly,
		Environment:       j.Environment,
		ExtraInfoKV:       j.ExtraInfoKeyValues,
		PluginInfo:        j.PluginInfo,
	}

	// trailing empty slots are dropped
	last := -1
	for i, v := range j.ExtraInfo {
		if v != "" {
			last = i
		}
	}
	if last >= 0 {
		doc.ExtraInfo = append([]string(nil), j.ExtraInfo[:last+1]...)
	}

	return toml.Marshal(doc)
}

// LoadTOML reads a job description written by MarshalTOML or by hand
func LoadTOML(r io.Reader, codec framelist.Codec) (*Job, error) {
	var doc tomlJob
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode job description: %w", err)
	}

	if doc.Name == "" {
		return nil, fmt.Errorf("job description: name is required")
	}
	if doc.Plugin == "" {
		return nil, fmt.Errorf("job description %q: plugin is required", doc.Name)
	}
	if len(doc.ExtraInfo) > 10 {
		return nil, fmt.Errorf("job description %q: at most 10 extra_info entries, got %d", doc.Name, len(doc.ExtraInfo))
	}

	frames, err := codec.Parse(doc.Frames)
	if err != nil {
		return nil, fmt.Errorf("job description %q: %w", doc.Name, err)
	}

	j := &Job{
		Name:               doc.Name,
		BatchName:          doc.BatchName,
		Plugin:             doc.Plugin,
		Priority:           doc.Priority,
		UserName:           doc.UserName,
		Department:         doc.Department,
		Comment:            doc.Comment,
		Frames:             frames,
		FramesPerTask:      doc.FramesPerTask,
		Sequential:         doc.Sequential,
		Pool:               doc.Pool,
		SecondaryPool:      doc.SecondaryPool,
		Group:              doc.Group,
		LimitGroups:        doc.LimitGroups,
		MachineLimit:       doc.MachineLimit,
		ConcurrentTasks:    doc.ConcurrentTasks,
		OutputDirectories:  doc.OutputDirectories,
		OutputFilenames:    doc.OutputFilenames,
		AuxFiles:           doc.AuxFiles,
		EnvironmentOnly:    doc.EnvironmentOnly,
		Environment:        doc.Environment,
		ExtraInfoKeyValues: doc.ExtraInfoKV,
		PluginInfo:         doc.PluginInfo,
	}
	if doc.Suspended {
		j.Status = deadline.StatusSuspended
	}
	copy(j.ExtraInfo[:], doc.ExtraInfo)

	return j, nil
}
