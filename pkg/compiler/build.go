package compiler

import (
	"archive/tar"
	"bytes"
	"fmt"
	"os"

	"github.com/google/go-containerregistry/pkg/authn"
	crname "github.com/google/go-containerregistry/pkg/name"
	crv1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/tarball"

	"github.com/netunicorn/netunicorn/pkg/domain"
)

// Builder produces the tagged image a compilation row describes:
// the environment's base image (or a declared default) with the
// pipeline blob and the statically-linked executor binary layered on
// top, entrypoint rewritten to run the executor (spec.md §4.3).
// Grounded on the teacher's use of go-containerregistry in
// pkg/images/analyzer (pkg/v1, pkg/v1/mutate, pkg/v1/tarball), here
// assembling images rather than inspecting them.
type Builder struct {
	Registry           string
	ExecutorBinaryPath string
	DefaultBaseImage   string
}

// Build produces registry/<experiment_id>-<compilation_id>:<architecture>
// from c and pushes it. The base is Environment.Image, or
// DefaultBaseImage when Image is empty; one layer holding the executor
// binary and the pipeline file is appended on top. Declared shell
// Commands are not executed: the compiler bakes layers rather than
// shelling out to `docker build`. Returns the pushed reference and a
// human-readable build log.
func (b *Builder) Build(c domain.Compilation) (image string, log string, err error) {
	baseRef := c.Environment.Image
	if baseRef == "" {
		baseRef = b.DefaultBaseImage
	}

	base, err := b.fetchBase(baseRef)
	if err != nil {
		return "", "", fmt.Errorf("fetching base image %q: %w", baseRef, err)
	}

	layer, err := payloadLayer(c.PipelineBlob, b.ExecutorBinaryPath)
	if err != nil {
		return "", "", fmt.Errorf("building payload layer: %w", err)
	}

	img, err := mutate.AppendLayers(base, layer)
	if err != nil {
		return "", "", fmt.Errorf("appending payload layer: %w", err)
	}

	cfgFile, err := img.ConfigFile()
	if err != nil {
		return "", "", fmt.Errorf("reading image config: %w", err)
	}
	cfg := cfgFile.Config
	cfg.Entrypoint = []string{"/netunicorn/executor"}
	cfg.Cmd = nil
	img, err = mutate.Config(img, cfg)
	if err != nil {
		return "", "", fmt.Errorf("setting entrypoint: %w", err)
	}

	ref := fmt.Sprintf("%s/%s-%s:%s", b.Registry, c.ExperimentID, c.CompilationID, c.Architecture)
	target, err := crname.ParseReference(ref)
	if err != nil {
		return "", "", fmt.Errorf("parsing target reference %q: %w", ref, err)
	}

	if err := remote.Write(target, img, remote.WithAuthFromKeychain(authn.DefaultKeychain)); err != nil {
		return "", "", fmt.Errorf("pushing %s: %w", ref, err)
	}

	return ref, fmt.Sprintf("built and pushed %s from base %s", ref, baseRef), nil
}

func (b *Builder) fetchBase(ref string) (crv1.Image, error) {
	if ref == "" {
		return nil, fmt.Errorf("no base image and no default_base_image configured")
	}
	name, err := crname.ParseReference(ref)
	if err != nil {
		return nil, err
	}
	return remote.Image(name, remote.WithAuthFromKeychain(authn.DefaultKeychain))
}

// payloadLayer tars the pipeline blob and the executor binary into a
// single uncompressed layer mounted at /netunicorn.
func payloadLayer(pipelineBlob []byte, executorBinaryPath string) (crv1.Layer, error) {
	executorBinary, err := os.ReadFile(executorBinaryPath)
	if err != nil {
		return nil, fmt.Errorf("reading executor binary: %w", err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	if err := writeTarFile(tw, "netunicorn/pipeline.json", pipelineBlob, 0o644); err != nil {
		return nil, err
	}
	if err := writeTarFile(tw, "netunicorn/executor", executorBinary, 0o755); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	return tarball.LayerFromReader(bytes.NewReader(buf.Bytes()))
}

func writeTarFile(tw *tar.Writer, name string, content []byte, mode int64) error {
	hdr := &tar.Header{Name: name, Size: int64(len(content)), Mode: mode}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}
