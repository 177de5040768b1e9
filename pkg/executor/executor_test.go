package executor_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/executor"
	execconfig "github.com/netunicorn/netunicorn/pkg/executor/config"
	"github.com/netunicorn/netunicorn/pkg/executor/execlog"
	"github.com/netunicorn/netunicorn/pkg/executor/interp"
)

func registry() interp.Registry {
	return interp.MapRegistry{
		"ok": func(ctx context.Context, init []byte, _ domain.Snapshot) (any, error) {
			return "done", nil
		},
	}
}

func TestRunPostsResultWhenReportResultsTrue(t *testing.T) {
	pipeline := domain.Pipeline{
		ID:            "p1",
		Stages:        []domain.Stage{{Tasks: []domain.Task{{Name: "a", Entrypoint: "ok"}}}},
		ReportResults: true,
	}
	pipelineBlob, _ := json.Marshal(pipeline)

	var gotResultBody []byte
	resultPosted := make(chan struct{}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/pipeline/exec-1" && r.Method == http.MethodGet:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(pipelineBlob)
		case r.URL.Path == "/heartbeat/exec-1" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/result/exec-1" && r.Method == http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			gotResultBody = body
			w.WriteHeader(http.StatusNoContent)
			select {
			case resultPosted <- struct{}{}:
			default:
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := execconfig.Config{
		GatewayEndpoint:   srv.URL,
		ExperimentID:      "exp-1",
		ExecutorID:        "exec-1",
		GatewayToken:      "tok",
		Heartbeat:         false,
		HeartbeatInterval: execconfig.DefaultHeartbeatInterval,
	}

	logger, buf := execlog.New(zapcore.ErrorLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := executor.Run(ctx, cfg, registry(), logger, buf); err != nil {
		t.Fatal(err)
	}

	select {
	case <-resultPosted:
	default:
		t.Fatal("expected a result to be posted")
	}

	var bundle executor.ResultBundle
	if err := json.Unmarshal(gotResultBody, &bundle); err != nil {
		t.Fatalf("decoding posted result: %v (body=%q)", err, gotResultBody)
	}
	if bundle.Failed {
		t.Error("expected a successful pipeline run")
	}
	if results := bundle.History["a"]; len(results) != 1 || !results[0].Ok {
		t.Errorf("unexpected history for task a: %+v", results)
	}
}

func TestRunSkipsResultPostWhenReportResultsFalse(t *testing.T) {
	pipeline := domain.Pipeline{
		ID:            "p1",
		Stages:        []domain.Stage{{Tasks: []domain.Task{{Name: "a", Entrypoint: "ok"}}}},
		ReportResults: false,
	}
	pipelineBlob, _ := json.Marshal(pipeline)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/pipeline/exec-1":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(pipelineBlob)
		case r.URL.Path == "/result/exec-1":
			t.Error("result should not be posted when report_results is false")
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	cfg := execconfig.Config{
		GatewayEndpoint:   srv.URL,
		ExperimentID:      "exp-1",
		ExecutorID:        "exec-1",
		GatewayToken:      "tok",
		Heartbeat:         false,
		HeartbeatInterval: execconfig.DefaultHeartbeatInterval,
	}

	logger, buf := execlog.New(zapcore.ErrorLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := executor.Run(ctx, cfg, registry(), logger, buf); err != nil {
		t.Fatal(err)
	}
}

func TestRunFailsWhenPipelineNeverLoads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := execconfig.Config{
		GatewayEndpoint:   srv.URL,
		ExperimentID:      "exp-1",
		ExecutorID:        "exec-1",
		GatewayToken:      "tok",
		Heartbeat:         false,
		HeartbeatInterval: execconfig.DefaultHeartbeatInterval,
	}

	logger, buf := execlog.New(zapcore.ErrorLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := executor.Run(ctx, cfg, registry(), logger, buf); err == nil {
		t.Error("expected a load error when the gateway never has a pipeline")
	}
}
