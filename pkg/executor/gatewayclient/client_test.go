package gatewayclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/executor/gatewayclient"
)

func TestGetPipelineSuccess(t *testing.T) {
	want := domain.Pipeline{ID: "p1", Stages: []domain.Stage{{Tasks: []domain.Task{{Name: "a"}}}}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pipeline/exec-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		blob, _ := json.Marshal(want)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(blob)
	}))
	defer srv.Close()

	c := gatewayclient.New(srv.URL, "exec-1", "tok")
	got, err := c.GetPipeline(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != want.ID || len(got.Stages) != len(want.Stages) {
		t.Errorf("unexpected pipeline: %+v", got)
	}
}

func TestGetPipelineNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := gatewayclient.New(srv.URL, "exec-1", "tok")
	if _, err := c.GetPipeline(context.Background()); err != gatewayclient.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHeartbeatSendsState(t *testing.T) {
	var gotBody struct {
		State string `json:"state"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := gatewayclient.New(srv.URL, "exec-1", "tok")
	if err := c.Heartbeat(context.Background(), domain.ExecutorExecuting); err != nil {
		t.Fatal(err)
	}
	if gotBody.State != string(domain.ExecutorExecuting) {
		t.Errorf("unexpected state posted: %q", gotBody.State)
	}
}

func TestPostResultIdempotentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := gatewayclient.New(srv.URL, "exec-1", "tok")
	if err := c.PostResult(context.Background(), []byte(`{"ok":true}`)); err != nil {
		t.Fatal(err)
	}
}

func TestPostResultUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := gatewayclient.New(srv.URL, "exec-1", "tok")
	if err := c.PostResult(context.Background(), []byte(`{}`)); err == nil {
		t.Error("expected an error for a 500 response")
	}
}
