package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/internal/jobs"
	"github.com/jmylchreest/go-deadlinejob/pkg/framelist"
)

type staticStats struct {
	stats *jobs.CycleStats
}

func (s staticStats) GetLastStats() *jobs.CycleStats { return s.stats }

type staticJobs struct {
	jobs map[string][]deadline.JobRecord
	err  error
}

func (s staticJobs) GetAllJobs(context.Context) (map[string][]deadline.JobRecord, error) {
	return s.jobs, s.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := NewRouter(Deps{})
	rec := do(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestParseFrames(t *testing.T) {
	h := NewRouter(Deps{})

	tests := []struct {
		name      string
		body      string
		want      []int
		canonical string
	}{
		{name: "stepped range", body: `{"frames":"1-10x2,20"}`, want: []int{1, 3, 5, 7, 9, 20}, canonical: "1-9x2,20"},
		{name: "step keyword", body: `{"frames":"1-5step2"}`, want: []int{1, 3, 5}, canonical: "1,3,5"},
		{name: "empty", body: `{"frames":""}`, want: []int{}, canonical: ""},
		{name: "numeric override", body: `{"frames":"9-10","ordering":"numeric"}`, want: []int{9, 10}, canonical: "9,10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/frames/parse", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decode[parseResponse](t, rec)
			assert.Equal(t, tt.want, resp.Frames)
			assert.Equal(t, len(tt.want), resp.Count)
			assert.Equal(t, tt.canonical, resp.Canonical)
		})
	}
}

func TestParseFramesErrors(t *testing.T) {
	h := NewRouter(Deps{Codec: framelist.Codec{MaxFrames: 10}})

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "bad json", body: `{"frames":`, status: http.StatusBadRequest, code: "bad_request"},
		{name: "unknown field", body: `{"frame":"1-10"}`, status: http.StatusBadRequest, code: "bad_request"},
		{name: "bad token", body: `{"frames":"1-10,abc"}`, status: http.StatusBadRequest, code: "invalid_frame_range"},
		{name: "too many", body: `{"frames":"1-100"}`, status: http.StatusUnprocessableEntity, code: "too_many_frames"},
		{name: "bad ordering", body: `{"frames":"1","ordering":"sideways"}`, status: http.StatusBadRequest, code: "bad_ordering"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/frames/parse", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			env := decode[errorEnvelope](t, rec)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotEmpty(t, env.Error.Message)
		})
	}

	rec := do(t, h, http.MethodPost, "/frames/parse", `{"frames":"1-10,abc"}`)
	env := decode[errorEnvelope](t, rec)
	assert.Equal(t, "abc", env.Error.Details["token"])
	assert.Contains(t, env.Error.Message, "invalid frame range")
}

func TestFormatFrames(t *testing.T) {
	h := NewRouter(Deps{})

	rec := do(t, h, http.MethodPost, "/frames/format", `{"frames":[1,2,3,4,5,10,20,30]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1-5,10,20,30", decode[formatResponse](t, rec).Text)

	rec = do(t, h, http.MethodPost, "/frames/format", `{"frames":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", decode[formatResponse](t, rec).Text)

	rec = do(t, h, http.MethodPost, "/frames/format", `{"frames":"1-5"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFrameTasks(t *testing.T) {
	h := NewRouter(Deps{})

	rec := do(t, h, http.MethodPost, "/frames/tasks", `{"frames":"1-7","chunk_size":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[tasksResponse](t, rec)
	assert.Equal(t, []taskResponse{
		{Index: 0, Frames: "1-3", First: 1, Last: 3, Count: 3},
		{Index: 1, Frames: "4-6", First: 4, Last: 6, Count: 3},
		{Index: 2, Frames: "7", First: 7, Last: 7, Count: 1},
	}, resp.Tasks)

	rec = do(t, h, http.MethodPost, "/frames/tasks", `{"frames":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[tasksResponse](t, rec).Tasks)

	rec = do(t, h, http.MethodPost, "/frames/tasks", `{"frames":"1-0x0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLastStats(t *testing.T) {
	rec := do(t, NewRouter(Deps{}), http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, NewRouter(Deps{Stats: staticStats{}}), http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_cycle", decode[errorEnvelope](t, rec).Error.Code)

	stats := &jobs.CycleStats{CycleID: "c1", JobsRun: 2, ItemsFound: map[string]int{"frames_audit": 4}}
	rec = do(t, NewRouter(Deps{Stats: staticStats{stats: stats}}), http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[jobs.CycleStats](t, rec)
	assert.Equal(t, "c1", got.CycleID)
	assert.Equal(t, 2, got.JobsRun)
	assert.Equal(t, 4, got.ItemsFound["frames_audit"])
}

func TestListJobs(t *testing.T) {
	rec := do(t, NewRouter(Deps{}), http.MethodGet, "/jobs", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_instances", decode[errorEnvelope](t, rec).Error.Code)

	source := staticJobs{jobs: map[string][]deadline.JobRecord{
		"farm": {
			{ID: "a", Stat: deadline.StatusActive, Props: deadline.JobProps{Name: "shot010", Frames: "1,2,3,4,5"}},
			{ID: "b", Stat: deadline.StatusSuspended, Props: deadline.JobProps{Name: "shot020", Frames: "95-105"}},
			{ID: "c", Stat: deadline.StatusFailed, Props: deadline.JobProps{Name: "shot030", Frames: "1-x"}},
		},
	}}
	rec = do(t, NewRouter(Deps{Jobs: source}), http.MethodGet, "/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[jobsResponse](t, rec)
	require.Len(t, got.Instances["farm"], 3)
	assert.Empty(t, got.Error)

	a, b, c := got.Instances["farm"][0], got.Instances["farm"][1], got.Instances["farm"][2]
	assert.Equal(t, jobView{ID: "a", Name: "shot010", Status: "Active", Frames: "1,2,3,4,5", Canonical: "1-5", Count: 5}, a)
	assert.True(t, b.Ambiguous)
	assert.Zero(t, b.Count)
	assert.Equal(t, "Suspended", b.Status)
	assert.Contains(t, c.Error, "invalid frame range")
}

func TestListJobsUpstreamErrors(t *testing.T) {
	down := staticJobs{err: errors.New("farm: connection refused")}
	rec := do(t, NewRouter(Deps{Jobs: down}), http.MethodGet, "/jobs", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream_error", decode[errorEnvelope](t, rec).Error.Code)

	partial := staticJobs{
		jobs: map[string][]deadline.JobRecord{"farm": {{ID: "a", Props: deadline.JobProps{Frames: "1"}}}},
		err:  errors.New("annex: connection refused"),
	}
	rec = do(t, NewRouter(Deps{Jobs: partial}), http.MethodGet, "/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[jobsResponse](t, rec)
	assert.Len(t, got.Instances["farm"], 1)
	assert.Contains(t, got.Error, "annex")
}

func TestLogLevel(t *testing.T) {
	rec := do(t, NewRouter(Deps{}), http.MethodPut, "/log/level", `{"level":"debug"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var levels []slog.Level
	h := NewRouter(Deps{SetLogLevel: func(l slog.Level) { levels = append(levels, l) }})

	rec = do(t, h, http.MethodPut, "/log/level", `{"level":"DEBUG"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DEBUG", decode[map[string]string](t, rec)["level"])

	rec = do(t, h, http.MethodPut, "/log/level", `{"level":"warning"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPut, "/log/level", `{"level":"verbose"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_level", decode[errorEnvelope](t, rec).Error.Code)

	rec = do(t, h, http.MethodPut, "/log/level", `{"lvl":"debug"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, []slog.Level{slog.LevelDebug, slog.LevelWarn}, levels)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, NewRouter(Deps{}), http.MethodGet, "/frames/parse", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewServer(t *testing.T) {
	srv := NewServer(":0", 0, Deps{})
	assert.Equal(t, ":0", srv.Addr)
	assert.NotNil(t, srv.Handler)
}
