package runner

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/assert"

	"github.com/container-build-org/container-build/model"
	"github.com/container-build-org/container-build/providers/backend"
)

type fakeBackend struct {
	backend.Backend

	spec     backend.RunSpec
	exitCode int
	runErr   error
}

func (f *fakeBackend) Run(ctx context.Context, spec backend.RunSpec) (int, error) {
	f.spec = spec
	return f.exitCode, f.runErr
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() *model.BuildConfig {
	return &model.BuildConfig{
		Username:             "build",
		UID:                  1000,
		GID:                  1000,
		WorkdirHostPath:      "/work/project",
		WorkdirContainerPath: "/home/build/src",
		Mounts: []model.Mount{
			{HostPath: "/srv/cache", ContainerPath: "/home/build/src/cache"},
		},
		Command: []string{"make", "all"},
	}
}

func TestRunExitCodePassthrough(t *testing.T) {
	// a failing contained command is a result, not an error
	be := &fakeBackend{exitCode: 7}
	r := NewContainerRunner(be, quietLogger())

	result, err := r.Run(context.Background(), &model.BuiltImage{ID: "sha256:abc"}, testConfig())
	assert.NilError(t, err)
	assert.Equal(t, result.ExitCode, 7)
}

func TestRunSpecComposition(t *testing.T) {
	be := &fakeBackend{}
	r := NewContainerRunner(be, quietLogger())

	_, err := r.Run(context.Background(), &model.BuiltImage{ID: "sha256:abc"}, testConfig())
	assert.NilError(t, err)

	assert.Equal(t, be.spec.ImageID, "sha256:abc")
	assert.Equal(t, be.spec.User, "build")
	assert.Equal(t, be.spec.WorkingDir, "/home/build/src")
	assert.DeepEqual(t, be.spec.Command, []string{"make", "all"})
	// the working directory mount always comes first
	assert.DeepEqual(t, be.spec.Mounts, []model.Mount{
		{HostPath: "/work/project", ContainerPath: "/home/build/src"},
		{HostPath: "/srv/cache", ContainerPath: "/home/build/src/cache"},
	})
}

func TestRunBackendFailure(t *testing.T) {
	be := &fakeBackend{runErr: errors.New("no such image")}
	r := NewContainerRunner(be, quietLogger())

	_, err := r.Run(context.Background(), &model.BuiltImage{ID: "sha256:abc"}, testConfig())

	var runErr *RunError
	assert.Assert(t, errors.As(err, &runErr))
	assert.ErrorContains(t, err, "no such image")
}

func TestRunPassthroughBadScheme(t *testing.T) {
	cfg := testConfig()
	cfg.DockerPassthrough = true
	r := NewContainerRunner(&fakeBackend{}, quietLogger())
	r.DockerHost = "tcp://localhost:2375"

	_, err := r.Run(context.Background(), &model.BuiltImage{ID: "sha256:abc"}, cfg)

	var runErr *RunError
	assert.Assert(t, errors.As(err, &runErr))
	assert.Assert(t, errors.Is(err, ErrPassthroughScheme))
}
