package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/internal/job"
	"github.com/jmylchreest/go-deadlinejob/internal/logging"
	"github.com/jmylchreest/go-deadlinejob/internal/version"
	"github.com/jmylchreest/go-deadlinejob/pkg/framelist"
)

type handlers struct {
	codec       framelist.Codec
	stats       StatsSource
	jobs        JobsSource
	setLogLevel func(slog.Level)
	logger      *slog.Logger
}

type parseRequest struct {
	Frames   string `json:"frames"`
	Ordering string `json:"ordering,omitempty"`
}

type parseResponse struct {
	Frames    []int  `json:"frames"`
	Count     int    `json:"count"`
	Canonical string `json:"canonical"`
}

type formatRequest struct {
	Frames   []int  `json:"frames"`
	Ordering string `json:"ordering,omitempty"`
}

type formatResponse struct {
	Text string `json:"text"`
}

type tasksRequest struct {
	Frames    string `json:"frames"`
	ChunkSize int    `json:"chunk_size"`
	Ordering  string `json:"ordering,omitempty"`
}

type taskResponse struct {
	Index  int    `json:"index"`
	Frames string `json:"frames"`
	First  int    `json:"first"`
	Last   int    `json:"last"`
	Count  int    `json:"count"`
}

type tasksResponse struct {
	Tasks []taskResponse `json:"tasks"`
}

type jobView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Frames    string `json:"frames"`
	Canonical string `json:"canonical,omitempty"`
	Count     int    `json:"count"`
	Ambiguous bool   `json:"ambiguous,omitempty"`
	Error     string `json:"error,omitempty"`
}

type jobsResponse struct {
	Instances map[string][]jobView `json:"instances"`
	Error     string               `json:"error,omitempty"`
}

type logLevelRequest struct {
	Level string `json:"level"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

func (h *handlers) parseFrames(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", "invalid json body", nil)
		return
	}

	codec, ok := h.codecFor(w, req.Ordering)
	if !ok {
		return
	}

	frames, err := codec.Parse(req.Frames)
	if err != nil {
		writeFrameErr(w, err)
		return
	}
	if frames == nil {
		frames = []int{}
	}

	writeJSON(w, http.StatusOK, parseResponse{
		Frames:    frames,
		Count:     len(frames),
		Canonical: codec.Format(frames),
	})
}

func (h *handlers) formatFrames(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", "invalid json body", nil)
		return
	}

	codec, ok := h.codecFor(w, req.Ordering)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, formatResponse{Text: codec.Format(req.Frames)})
}

func (h *handlers) frameTasks(w http.ResponseWriter, r *http.Request) {
	var req tasksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", "invalid json body", nil)
		return
	}

	codec, ok := h.codecFor(w, req.Ordering)
	if !ok {
		return
	}

	frames, err := codec.Parse(req.Frames)
	if err != nil {
		writeFrameErr(w, err)
		return
	}

	j := &job.Job{Frames: frames, FramesPerTask: req.ChunkSize}
	resp := tasksResponse{Tasks: make([]taskResponse, 0)}
	for _, task := range j.Tasks() {
		resp.Tasks = append(resp.Tasks, taskResponse{
			Index:  task.Index,
			Frames: task.FrameString(codec),
			First:  task.First(),
			Last:   task.Last(),
			Count:  len(task.Frames),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) lastStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeErr(w, http.StatusNotFound, "no_cycle", "maintenance is not running", nil)
		return
	}

	stats := h.stats.GetLastStats()
	if stats == nil {
		writeErr(w, http.StatusNotFound, "no_cycle", "no maintenance cycle has completed", nil)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeErr(w, http.StatusNotFound, "no_instances", "no Deadline instances are registered", nil)
		return
	}

	all, err := h.jobs.GetAllJobs(r.Context())
	if err != nil && len(all) == 0 {
		writeErr(w, http.StatusBadGateway, "upstream_error", err.Error(), nil)
		return
	}

	resp := jobsResponse{Instances: make(map[string][]jobView, len(all))}
	if err != nil {
		resp.Error = err.Error()
	}
	for instance, records := range all {
		views := make([]jobView, 0, len(records))
		for _, rec := range records {
			views = append(views, h.viewJob(rec))
		}
		resp.Instances[instance] = views
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) viewJob(rec deadline.JobRecord) jobView {
	v := jobView{
		ID:     rec.ID,
		Name:   rec.Props.Name,
		Status: deadline.StatusName(rec.Stat),
		Frames: rec.Props.Frames,
	}

	frames, err := h.codec.Parse(rec.Props.Frames)
	if err != nil {
		v.Error = err.Error()
		return v
	}
	v.Count = len(frames)
	v.Canonical = h.codec.Format(frames)
	v.Ambiguous = h.codec.OrderingSensitive(rec.Props.Frames)
	return v
}

func (h *handlers) logLevel(w http.ResponseWriter, r *http.Request) {
	if h.setLogLevel == nil {
		writeErr(w, http.StatusNotFound, "not_supported", "log level cannot be changed", nil)
		return
	}

	var req logLevelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", "invalid json body", nil)
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Level))
	switch name {
	case "debug", "info", "warn", "warning", "error":
	default:
		writeErr(w, http.StatusBadRequest, "bad_level", "level must be debug, info, warn or error", map[string]any{"level": req.Level})
		return
	}

	level := logging.ParseLevel(name)
	h.setLogLevel(level)
	h.logger.Info("log level changed", "level", level.String())
	writeJSON(w, http.StatusOK, map[string]string{"level": level.String()})
}

// codecFor applies a per-request ordering override
func (h *handlers) codecFor(w http.ResponseWriter, ordering string) (framelist.Codec, bool) {
	codec := h.codec
	if ordering == "" {
		return codec, true
	}

	o, err := framelist.ParseOrdering(ordering)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_ordering", err.Error(), nil)
		return codec, false
	}
	codec.Ordering = o
	return codec, true
}

func writeFrameErr(w http.ResponseWriter, err error) {
	var details map[string]any
	var fe *framelist.FormatError
	if errors.As(err, &fe) && fe.Token != "" {
		details = map[string]any{"token": fe.Token}
	}

	if errors.Is(err, framelist.ErrTooManyFrames) {
		writeErr(w, http.StatusUnprocessableEntity, "too_many_frames", err.Error(), details)
		return
	}
	writeErr(w, http.StatusBadRequest, "invalid_frame_range", err.Error(), details)
}
