package deadline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantURL string
	}{
		{
			name:    "plain url",
			cfg:     ClientConfig{Name: "farm", BaseURL: "http://deadline:8081"},
			wantURL: "http://deadline:8081",
		},
		{
			name:    "trailing slash removal",
			cfg:     ClientConfig{Name: "farm", BaseURL: "http://deadline:8081/"},
			wantURL: "http://deadline:8081",
		},
		{
			name:    "with custom timeout",
			cfg:     ClientConfig{Name: "remote", BaseURL: "https://farm.example", Timeout: time.Minute},
			wantURL: "https://farm.example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.cfg)
			if client == nil {
				t.Fatal("expected non-nil client")
			}
			if client.Name() != tt.cfg.Name {
				t.Errorf("Name() = %q, want %q", client.Name(), tt.cfg.Name)
			}
			if client.baseURL != tt.wantURL {
				t.Errorf("baseURL = %q, want %q", client.baseURL, tt.wantURL)
			}
		})
	}
}

func TestGetJobs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs" {
			t.Errorf("path = %q, want /api/jobs", r.URL.Path)
		}
		if r.URL.Query().Get("Deleted") != "" {
			t.Errorf("unexpected Deleted query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[
			{"_id":"j1","Stat":1,"Plug":"HoudiniHusk","Props":{"Name":"shot010","Frames":"1001-1100","Chunk":10,
			 "Env":{"DL_JOB_REDIS_KEYS":"a,b"},"Ex3":"review"}},
			{"_id":"j2","Stat":2,"Props":{"Name":"shot020","Frames":"1-10x2","Chunk":1}}
		]`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Name: "farm", BaseURL: server.URL})
	jobs, err := client.GetJobs(context.Background())
	if err != nil {
		t.Fatalf("GetJobs failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}

	first := jobs[0]
	if first.ID != "j1" || first.Stat != StatusActive || first.Plug != "HoudiniHusk" {
		t.Errorf("unexpected first job: %+v", first)
	}
	if first.Props.Frames != "1001-1100" || first.Props.Chunk != 10 {
		t.Errorf("frames = %q chunk = %d", first.Props.Frames, first.Props.Chunk)
	}
	if first.Props.Env["DL_JOB_REDIS_KEYS"] != "a,b" {
		t.Errorf("env = %v", first.Props.Env)
	}
	if ex := first.Props.ExtraInfo(); ex[3] != "review" {
		t.Errorf("ExtraInfo()[3] = %q, want review", ex[3])
	}
	if jobs[1].Stat != StatusSuspended {
		t.Errorf("second job status = %d, want %d", jobs[1].Stat, StatusSuspended)
	}
}

func TestGetDeletedJobs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("Deleted") != "true" {
			t.Errorf("Deleted = %q, want true", r.URL.Query().Get("Deleted"))
		}
		_, _ = w.Write([]byte(`[{"_id":"gone","Props":{"Name":"old"}}]`))
	}))
	defer server.Close()

	jobs, err := NewClient(ClientConfig{BaseURL: server.URL}).GetDeletedJobs(context.Background())
	if err != nil {
		t.Fatalf("GetDeletedJobs failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "gone" {
		t.Errorf("unexpected deleted jobs: %+v", jobs)
	}
}

func TestGetJobsMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"`))
	}))
	defer server.Close()

	_, err := NewClient(ClientConfig{BaseURL: server.URL}).GetJobs(context.Background())
	if err == nil {
		t.Fatal("expected a decode error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("decode failure reported as APIError: %v", apiErr)
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Errorf("error = %v, want a decode error", err)
	}
}

func TestGetJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("JobID") {
		case "j1":
			_, _ = w.Write([]byte(`[{"_id":"j1","Props":{"Name":"shot010","Frames":"1-5"}}]`))
		case "missing-404":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("Error: Job not found"))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	ctx := context.Background()

	job, err := client.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Props.Name != "shot010" {
		t.Errorf("name = %q, want shot010", job.Props.Name)
	}

	for _, id := range []string{"missing", "missing-404"} {
		_, err = client.GetJob(ctx, id)
		if !errors.Is(err, ErrJobNotFound) {
			t.Errorf("GetJob(%q) error = %v, want ErrJobNotFound", id, err)
		}
	}

	_, err = client.GetJob(ctx, "broken")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Body != "boom" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}

func TestSubmitJob(t *testing.T) {
	var received Submission
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "render" || pass != "pw" {
			t.Errorf("basic auth = %q/%q/%v", user, pass, ok)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode submission: %v", err)
		}
		_, _ = w.Write([]byte(`{"_id":"new-job"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Username: "render", Password: "pw"})
	id, err := client.SubmitJob(context.Background(), Submission{
		JobInfo:    map[string]string{"Name": "shot030", "Frames": "1-100", "Plugin": "HoudiniHusk"},
		PluginInfo: map[string]string{"Version": "20.5"},
	})
	if err != nil {
		t.Fatalf("SubmitJob failed: %v", err)
	}
	if id != "new-job" {
		t.Errorf("id = %q, want new-job", id)
	}
	if !received.IdOnly {
		t.Error("expected IdOnly to be set")
	}
	if received.AuxFiles == nil {
		t.Error("expected empty AuxFiles list, got null")
	}
	if received.JobInfo["Frames"] != "1-100" || received.PluginInfo["Version"] != "20.5" {
		t.Errorf("unexpected submission: %+v", received)
	}
}

func TestSetJobFrames(t *testing.T) {
	var received setJobFramesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte("Success"))
	}))
	defer server.Close()

	err := NewClient(ClientConfig{BaseURL: server.URL}).SetJobFrames(context.Background(), "j1", "1-9x2", 5)
	if err != nil {
		t.Fatalf("SetJobFrames failed: %v", err)
	}

	want := setJobFramesRequest{Command: "setjobframes", JobID: "j1", FrameList: "1-9x2", ChunkSize: 5}
	if received != want {
		t.Errorf("request = %+v, want %+v", received, want)
	}
}

func TestSetJobFramesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Error: invalid frame list"))
	}))
	defer server.Close()

	err := NewClient(ClientConfig{BaseURL: server.URL}).SetJobFrames(context.Background(), "j1", "oops", 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Method != http.MethodPut || apiErr.Path != "/api/jobs" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}

func TestJobPropsSetExtraInfo(t *testing.T) {
	var p JobProps
	var ex [10]string
	for i := range ex {
		ex[i] = string(rune('a' + i))
	}
	p.SetExtraInfo(ex)

	if p.Ex0 != "a" || p.Ex9 != "j" {
		t.Errorf("Ex0 = %q Ex9 = %q", p.Ex0, p.Ex9)
	}
	if p.ExtraInfo() != ex {
		t.Errorf("ExtraInfo() = %v, want %v", p.ExtraInfo(), ex)
	}
}

func TestStatusName(t *testing.T) {
	tests := map[int]string{
		StatusActive:    "Active",
		StatusSuspended: "Suspended",
		StatusCompleted: "Completed",
		StatusFailed:    "Failed",
		StatusPending:   "Pending",
		StatusUnknown:   "Unknown",
		5:               "Unknown",
	}
	for status, want := range tests {
		if got := StatusName(status); got != want {
			t.Errorf("StatusName(%d) = %q, want %q", status, got, want)
		}
	}
}
