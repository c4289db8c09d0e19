package job

import "github.com/jmylchreest/go-deadlinejob/pkg/framelist"

// Task is one chunk of a job's frames, rendered by a single worker dequeue
type Task struct {
	Index  int
	Frames []int
}

// First returns the first frame of the task
func (t Task) First() int {
	return t.Frames[0]
}

// Last returns the last frame of the task
func (t Task) Last() int {
	return t.Frames[len(t.Frames)-1]
}

// FrameString returns the task's frames as a frame string
func (t Task) FrameString(codec framelist.Codec) string {
	return codec.Format(t.Frames)
}

// Tasks splits the job's frames, in order, into chunks of FramesPerTask frames.
// A FramesPerTask below one is treated as one.
func (j *Job) Tasks() []Task {
	size := j.chunkSize()
	tasks := make([]Task, 0, (len(j.Frames)+size-1)/size)
	for start := 0; start < len(j.Frames); start += size {
		end := min(start+size, len(j.Frames))
		tasks = append(tasks, Task{
			Index:  len(tasks),
			Frames: j.Frames[start:end:end],
		})
	}
	return tasks
}
