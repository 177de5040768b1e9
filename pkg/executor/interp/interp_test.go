package interp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/executor/interp"
)

func registry() interp.Registry {
	return interp.MapRegistry{
		"ok": func(ctx context.Context, init []byte, _ domain.Snapshot) (any, error) {
			return "done", nil
		},
		"fail": func(ctx context.Context, init []byte, _ domain.Snapshot) (any, error) {
			return nil, fmt.Errorf("boom")
		},
		"panics": func(ctx context.Context, init []byte, _ domain.Snapshot) (any, error) {
			panic("unexpected")
		},
		"echo-prior": func(ctx context.Context, init []byte, snapshot domain.Snapshot) (any, error) {
			prior, ok := snapshot["first"]
			if !ok {
				return nil, fmt.Errorf("missing prior result")
			}
			return prior.Value, nil
		},
	}
}

func TestRunAllStagesPass(t *testing.T) {
	pipeline := domain.Pipeline{
		Stages: []domain.Stage{
			{Tasks: []domain.Task{{Name: "a", Entrypoint: "ok"}, {Name: "b", Entrypoint: "ok"}}},
			{Tasks: []domain.Task{{Name: "c", Entrypoint: "ok"}}},
		},
	}

	history := interp.Run(context.Background(), pipeline, registry())

	for _, name := range []string{"a", "b", "c"} {
		results := history[name]
		if len(results) != 1 || !results[0].Ok {
			t.Errorf("expected task %q to have one Ok result, got %+v", name, results)
		}
	}
}

func TestRunStopsAtFirstFailingStage(t *testing.T) {
	pipeline := domain.Pipeline{
		Stages: []domain.Stage{
			{Tasks: []domain.Task{{Name: "a", Entrypoint: "ok"}, {Name: "b", Entrypoint: "fail"}}},
			{Tasks: []domain.Task{{Name: "c", Entrypoint: "ok"}}},
		},
	}

	history := interp.Run(context.Background(), pipeline, registry())

	if _, ok := history["c"]; ok {
		t.Error("expected stage 2 to be skipped after stage 1 failed")
	}
	if results := history["b"]; len(results) != 1 || results[0].Ok {
		t.Errorf("expected task b to have failed, got %+v", results)
	}
}

func TestRunRecoversPanicAsErr(t *testing.T) {
	pipeline := domain.Pipeline{
		Stages: []domain.Stage{{Tasks: []domain.Task{{Name: "a", Entrypoint: "panics"}}}},
	}

	history := interp.Run(context.Background(), pipeline, registry())

	results := history["a"]
	if len(results) != 1 || results[0].Ok {
		t.Fatalf("expected a recovered panic to surface as Err, got %+v", results)
	}
}

func TestRunUnknownEntrypointIsErr(t *testing.T) {
	pipeline := domain.Pipeline{
		Stages: []domain.Stage{{Tasks: []domain.Task{{Name: "a", Entrypoint: "nonexistent"}}}},
	}

	history := interp.Run(context.Background(), pipeline, registry())

	results := history["a"]
	if len(results) != 1 || results[0].Ok {
		t.Fatalf("expected unknown entrypoint to be Err, got %+v", results)
	}
}

func TestRunSnapshotsPriorResults(t *testing.T) {
	pipeline := domain.Pipeline{
		Stages: []domain.Stage{
			{Tasks: []domain.Task{{Name: "first", Entrypoint: "ok"}}},
			{Tasks: []domain.Task{{Name: "second", Entrypoint: "echo-prior"}}},
		},
	}

	history := interp.Run(context.Background(), pipeline, registry())

	results := history["second"]
	if len(results) != 1 || !results[0].Ok {
		t.Fatalf("expected second task to see first's result, got %+v", results)
	}
	var value string
	if err := json.Unmarshal(results[0].Value, &value); err != nil {
		t.Fatal(err)
	}
	if value != "done" {
		t.Errorf("expected snapshot value %q, got %q", "done", value)
	}
}

func TestPoolSize(t *testing.T) {
	for name, n := range map[string]int{
		"zero tasks defaults to 1": 0,
		"negative defaults to 1":   -5,
		"one task":                 1,
	} {
		t.Run(name, func(t *testing.T) {
			if got := interp.PoolSize(n); got < 1 {
				t.Errorf("expected pool size >= 1, got %d", got)
			}
		})
	}
}
