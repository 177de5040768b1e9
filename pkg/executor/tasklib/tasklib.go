// Package tasklib is a minimal built-in entrypoint registry. spec.md
// §1 explicitly places "the task library" out of scope — it's an
// external collaborator a real deployment bakes into its built image
// alongside the pipeline file. This package exists only so cmd/executor
// has something to run out of the box: a shell-command entrypoint and
// a no-op one, in the spirit (not the letter — nothing here is copied)
// of mchenetz-SPLAI's worker/internal/executor.Executor.Run dispatch.
package tasklib

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/executor/interp"
)

type shellInit struct {
	Command string `json:"command"`
}

// shell runs Init.Command through /bin/sh -c and yields its combined
// output as Ok, or an error with that output on a non-zero exit.
func shell(ctx context.Context, init []byte, _ domain.Snapshot) (any, error) {
	var in shellInit
	if len(init) > 0 {
		if err := json.Unmarshal(init, &in); err != nil {
			return nil, fmt.Errorf("decoding shell task init: %w", err)
		}
	}
	if in.Command == "" {
		return nil, fmt.Errorf("shell task requires init.command")
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", in.Command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("command failed: %w: %s", err, out)
	}
	return string(out), nil
}

// noop always succeeds with no output; useful for pipelines whose
// tasks exist purely to express ordering/prerequisites.
func noop(ctx context.Context, init []byte, _ domain.Snapshot) (any, error) {
	return nil, nil
}

// Registry returns the built-in entrypoints: "shell" and "noop".
func Registry() interp.Registry {
	return interp.MapRegistry{
		"shell": interp.Entrypoint(shell),
		"noop":  interp.Entrypoint(noop),
	}
}
