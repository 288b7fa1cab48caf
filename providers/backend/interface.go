package backend

import (
	"context"
	"errors"
	"io"

	"github.com/container-build-org/container-build/model"
)

// BuildHandle identifies an in-progress image build owned by the backend.
type BuildHandle string

// RunSpec describes a single container run: which image, which identity,
// what to mount and what to execute. Command arguments pass through to the
// container unmodified, with no shell interpretation layer.
type RunSpec struct {
	ImageID    string
	User       string
	WorkingDir string
	Mounts     []model.Mount
	GroupAdd   []string
	Command    []string

	// Stdout and Stderr receive the contained process's output as it is
	// produced.
	Stdout io.Writer
	Stderr io.Writer
}

// Backend is the container engine capability the pipeline drives. It is
// injected into the components that need it so the whole pipeline can run
// against a fake engine in tests.
type Backend interface {
	// BeginBuild prepares an image build on top of the base image.
	BeginBuild(ctx context.Context, baseImage string) (BuildHandle, error)
	// ApplyStep applies one build step to the in-progress build.
	ApplyStep(ctx context.Context, handle BuildHandle, step model.BuildStep) error
	// FinalizeBuild commits the build into an image tagged ref, returning
	// the backend-assigned image ID.
	FinalizeBuild(ctx context.Context, handle BuildHandle, ref string, labels map[string]string) (string, error)
	// AbortBuild discards an in-progress build after a step failure.
	AbortBuild(ctx context.Context, handle BuildHandle)

	// Run starts a container from an image and blocks until the contained
	// process exits, returning its exit code.
	Run(ctx context.Context, spec RunSpec) (int, error)

	// RemoveImage releases a built image.
	RemoveImage(ctx context.Context, imageID string) error
}

var (
	ErrUnknownBuild = errors.New("unknown build handle")
	ErrUnknownStep  = errors.New("unknown build step kind")
)
