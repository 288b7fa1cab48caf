// Package runner starts a container from a built image and relays the
// contained command's exit status.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/container-build-org/container-build/model"
	"github.com/container-build-org/container-build/providers/backend"
)

// RunError means the backend could not start or run the container. A
// non-zero exit code from the contained command is not a RunError: it is a
// successful RunResult.
type RunError struct {
	Err error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("container run failed: %v", e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

type ContainerRunner struct {
	backend backend.Backend
	l       *logrus.Logger

	// DockerHost is consulted for socket passthrough.
	DockerHost string
	Stdout     io.Writer
	Stderr     io.Writer
}

func NewContainerRunner(be backend.Backend, l *logrus.Logger) *ContainerRunner {
	return &ContainerRunner{
		backend: be,
		l:       l,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Run executes the configured command inside a container from img as the
// created user, with the working directory bind-mounted. It blocks until the
// contained process exits; output streams through unmodified.
func (r *ContainerRunner) Run(ctx context.Context, img *model.BuiltImage, cfg *model.BuildConfig) (*model.RunResult, error) {
	mounts := make([]model.Mount, 0, len(cfg.Mounts)+2)
	mounts = append(mounts, model.Mount{
		HostPath:      cfg.WorkdirHostPath,
		ContainerPath: cfg.WorkdirContainerPath,
	})
	mounts = append(mounts, cfg.Mounts...)

	var groupAdd []string
	if cfg.DockerPassthrough {
		mount, group, err := passthroughSocket(r.DockerHost, cfg.UID)
		if err != nil {
			return nil, &RunError{Err: err}
		}
		mounts = append(mounts, mount)
		if group != "" {
			groupAdd = append(groupAdd, group)
		}
	}

	r.l.Infof("running %v as %s in %s", cfg.Command, cfg.Username, cfg.WorkdirContainerPath)

	exitCode, err := r.backend.Run(ctx, backend.RunSpec{
		ImageID:    img.ID,
		User:       cfg.Username,
		WorkingDir: cfg.WorkdirContainerPath,
		Mounts:     mounts,
		GroupAdd:   groupAdd,
		Command:    cfg.Command,
		Stdout:     r.Stdout,
		Stderr:     r.Stderr,
	})
	if err != nil {
		return nil, &RunError{Err: err}
	}

	return &model.RunResult{ExitCode: exitCode}, nil
}
