package tasklib_test

import (
	"context"
	"testing"

	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/executor/interp"
	"github.com/netunicorn/netunicorn/pkg/executor/tasklib"
)

func TestShellTaskSucceeds(t *testing.T) {
	reg := tasklib.Registry()
	entry, ok := reg.Lookup("shell")
	if !ok {
		t.Fatal("expected a registered shell entrypoint")
	}

	out, err := entry(context.Background(), []byte(`{"command":"echo hello"}`), domain.Snapshot{})
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := out.(string); !ok || s == "" {
		t.Errorf("expected non-empty output, got %v", out)
	}
}

func TestShellTaskFailsOnNonZeroExit(t *testing.T) {
	reg := tasklib.Registry()
	entry, _ := reg.Lookup("shell")

	if _, err := entry(context.Background(), []byte(`{"command":"exit 1"}`), domain.Snapshot{}); err == nil {
		t.Error("expected an error for a non-zero exit command")
	}
}

func TestShellTaskRequiresCommand(t *testing.T) {
	reg := tasklib.Registry()
	entry, _ := reg.Lookup("shell")

	if _, err := entry(context.Background(), []byte(`{}`), domain.Snapshot{}); err == nil {
		t.Error("expected an error when init.command is empty")
	}
}

func TestNoopTaskSucceeds(t *testing.T) {
	reg := tasklib.Registry()
	entry, ok := reg.Lookup("noop")
	if !ok {
		t.Fatal("expected a registered noop entrypoint")
	}

	if _, err := entry(context.Background(), nil, domain.Snapshot{}); err != nil {
		t.Fatal(err)
	}
}

var _ interp.Registry = tasklib.Registry()
