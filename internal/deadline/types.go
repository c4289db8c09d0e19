package deadline

// Job status codes reported in JobRecord.Stat
const (
	StatusUnknown   = 0
	StatusActive    = 1
	StatusSuspended = 2
	StatusCompleted = 3
	StatusFailed    = 4
	StatusPending   = 6
)

// StatusName returns the Monitor label for a status code
func StatusName(status int) string {
	switch status {
	case StatusActive:
		return "Active"
	case StatusSuspended:
		return "Suspended"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusPending:
		return "Pending"
	default:
		return "Unknown"
	}
}

// JobRecord is a job as returned by the Web Service /api/jobs endpoint.
// Field names follow the Deadline database documents.
type JobRecord struct {
	ID      string   `json:"_id"`
	Props   JobProps `json:"Props"`
	Stat    int      `json:"Stat"`
	Plug    string   `json:"Plug"`
	OutDir  []string `json:"OutDir"`
	OutFile []string `json:"OutFile"`
	Aux     []string `json:"Aux"`
	Mach    string   `json:"Mach"`
	Date    string   `json:"Date"`
	Errs    int      `json:"Errs"`

	QueuedChunks    int `json:"QueuedChunks"`
	RenderingChunks int `json:"RenderingChunks"`
	PendingChunks   int `json:"PendingChunks"`
	CompletedChunks int `json:"CompletedChunks"`
	SuspendedChunks int `json:"SuspendedChunks"`
	FailedChunks    int `json:"FailedChunks"`

	Main      bool `json:"Main"`
	MainStart int  `json:"MainStart"`
	MainEnd   int  `json:"MainEnd"`
	Tile      bool `json:"Tile"`
	TileFrame int  `json:"TileFrame"`
}

// JobProps holds the editable job properties
type JobProps struct {
	Name    string `json:"Name"`
	Batch   string `json:"Batch"`
	Pri     int    `json:"Pri"`
	Protect bool   `json:"Protect"`
	User    string `json:"User"`
	Dept    string `json:"Dept"`
	Cmmt    string `json:"Cmmt"`
	Frames  string `json:"Frames"`
	Chunk   int    `json:"Chunk"`
	Seq     bool   `json:"Seq"`

	Env     map[string]string `json:"Env"`
	EnvOnly bool              `json:"EnvOnly"`
	ExDic   map[string]string `json:"ExDic"`
	Ex0     string            `json:"Ex0"`
	Ex1     string            `json:"Ex1"`
	Ex2     string            `json:"Ex2"`
	Ex3     string            `json:"Ex3"`
	Ex4     string            `json:"Ex4"`
	Ex5     string            `json:"Ex5"`
	Ex6     string            `json:"Ex6"`
	Ex7     string            `json:"Ex7"`
	Ex8     string            `json:"Ex8"`
	Ex9     string            `json:"Ex9"`

	Pool     string            `json:"Pool"`
	SecPool  string            `json:"SecPool"`
	Grp      string            `json:"Grp"`
	Limits   []string          `json:"Limits"`
	MachLmt  int               `json:"MachLmt"`
	Conc     int               `json:"Conc"`
	PlugInfo map[string]string `json:"PlugInfo"`
	Tasks    int               `json:"Tasks"`
	OnComp   int               `json:"OnComp"`
	Timeout  int               `json:"Timeout"`
}

// ExtraInfo returns the indexed extra info fields Ex0..Ex9 in order
func (p JobProps) ExtraInfo() [10]string {
	return [10]string{p.Ex0, p.Ex1, p.Ex2, p.Ex3, p.Ex4, p.Ex5, p.Ex6, p.Ex7, p.Ex8, p.Ex9}
}

// SetExtraInfo assigns the indexed extra info fields Ex0..Ex9
func (p *JobProps) SetExtraInfo(ex [10]string) {
	p.Ex0, p.Ex1, p.Ex2, p.Ex3, p.Ex4 = ex[0], ex[1], ex[2], ex[3], ex[4]
	p.Ex5, p.Ex6, p.Ex7, p.Ex8, p.Ex9 = ex[5], ex[6], ex[7], ex[8], ex[9]
}

// Submission is the body of a job submission request
type Submission struct {
	JobInfo    map[string]string `json:"JobInfo"`
	PluginInfo map[string]string `json:"PluginInfo"`
	AuxFiles   []string          `json:"AuxFiles"`
	IdOnly     bool              `json:"IdOnly"`
}

// SubmitResult is returned by a submission with IdOnly set
type SubmitResult struct {
	ID string `json:"_id"`
}

// setJobFramesRequest is the body of the setjobframes PUT command
type setJobFramesRequest struct {
	Command   string `json:"Command"`
	JobID     string `json:"JobID"`
	FrameList string `json:"FrameList"`
	ChunkSize int    `json:"ChunkSize"`
}
