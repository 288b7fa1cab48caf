package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/container-build-org/container-build/model"
	"github.com/container-build-org/container-build/providers/backend"
)

const DockerBackendKind model.BackendKind = "docker"

var _ backend.Backend = new(DockerBackend)

// DockerBackend drives the Docker Engine API. Builds run against a live
// container started from the base image: each step is an exec, the result is
// committed into an image. This keeps step failures attributable to the step
// that caused them instead of a single opaque build call.
type DockerBackend struct {
	cli *client.Client
	l   *logrus.Logger
	out io.Writer

	mu     sync.Mutex
	builds map[backend.BuildHandle]*buildState
}

type buildState struct {
	containerID string
	// recorded from the create-user step so the committed image carries the
	// same USER/ENV defaults the run will use
	username string
	homeDir  string
	shell    string
}

// NewDockerBackend creates a backend from the environment (DOCKER_HOST et
// al.). out receives build progress and step output; pass io.Discard to
// silence it.
func NewDockerBackend(l *logrus.Logger, out io.Writer) (*DockerBackend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = io.Discard
	}
	return &DockerBackend{
		cli:    cli,
		l:      l,
		out:    out,
		builds: make(map[backend.BuildHandle]*buildState),
	}, nil
}

func (b *DockerBackend) Close() error {
	return b.cli.Close()
}

func (b *DockerBackend) BeginBuild(ctx context.Context, baseImage string) (backend.BuildHandle, error) {
	b.l.Infof("pulling base image %s", baseImage)
	rc, err := b.cli.ImagePull(ctx, baseImage, image.PullOptions{})
	if err != nil {
		return "", fmt.Errorf("pulling %s: %w", baseImage, err)
	}
	defer rc.Close()

	pullOutput, err := RenderStream(rc)
	if err != nil {
		return "", fmt.Errorf("pulling %s: %w", baseImage, err)
	}
	b.out.Write(pullOutput)

	name := "container-build-" + uuid.New().String()
	resp, err := b.cli.ContainerCreate(ctx, &container.Config{
		Image:      baseImage,
		Entrypoint: strslice.StrSlice{"sleep"},
		Cmd:        strslice.StrSlice{"infinity"},
	}, nil, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("creating build container: %w", err)
	}

	if err := b.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		b.removeContainer(resp.ID)
		return "", fmt.Errorf("starting build container: %w", err)
	}

	handle := backend.BuildHandle(uuid.New().String())
	b.mu.Lock()
	b.builds[handle] = &buildState{containerID: resp.ID}
	b.mu.Unlock()

	b.l.Debugf("build container %s started from %s", resp.ID[:12], baseImage)
	return handle, nil
}

func (b *DockerBackend) FinalizeBuild(ctx context.Context, handle backend.BuildHandle, ref string, labels map[string]string) (string, error) {
	state, err := b.build(handle)
	if err != nil {
		return "", err
	}
	defer b.dropBuild(handle)

	// scripts were staged under /tmp/build, drop them before committing
	if err := b.exec(ctx, state.containerID, "root", "rm -rf /tmp/build"); err != nil {
		b.l.Debugf("cleaning build staging directory: %v", err)
	}

	commitConfig := &container.Config{Labels: labels}
	if state.username != "" {
		commitConfig.User = state.username
		commitConfig.Env = []string{
			"HOME=" + state.homeDir,
			"USER=" + state.username,
		}
		commitConfig.Cmd = strslice.StrSlice{state.shell}
	}

	resp, err := b.cli.ContainerCommit(ctx, state.containerID, container.CommitOptions{
		Reference: ref,
		Config:    commitConfig,
	})
	if err != nil {
		return "", fmt.Errorf("committing image: %w", err)
	}

	b.l.Debugf("committed image %s as %s", resp.ID, ref)
	return resp.ID, nil
}

func (b *DockerBackend) AbortBuild(ctx context.Context, handle backend.BuildHandle) {
	if _, err := b.build(handle); err != nil {
		return
	}
	b.dropBuild(handle)
}

func (b *DockerBackend) RemoveImage(ctx context.Context, imageID string) error {
	_, err := b.cli.ImageRemove(ctx, imageID, image.RemoveOptions{PruneChildren: true})
	return err
}

func (b *DockerBackend) Run(ctx context.Context, spec backend.RunSpec) (int, error) {
	binds := make([]string, 0, len(spec.Mounts))
	for _, m := range spec.Mounts {
		binds = append(binds, m.HostPath+":"+m.ContainerPath)
	}

	resp, err := b.cli.ContainerCreate(ctx, &container.Config{
		Image:      spec.ImageID,
		User:       spec.User,
		WorkingDir: spec.WorkingDir,
		Cmd:        strslice.StrSlice(spec.Command),
		Env:        []string{"LC_ALL=C.UTF-8"},
	}, &container.HostConfig{
		Binds:    binds,
		GroupAdd: spec.GroupAdd,
	}, nil, nil, "")
	if err != nil {
		return 0, fmt.Errorf("creating container: %w", err)
	}
	id := resp.ID
	defer b.removeContainer(id)

	attach, err := b.cli.ContainerAttach(ctx, id, container.AttachOptions{
		Stream: true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return 0, fmt.Errorf("attaching to container: %w", err)
	}
	defer attach.Close()

	if err := b.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return 0, fmt.Errorf("starting container: %w", err)
	}

	copyDone := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(spec.Stdout, spec.Stderr, attach.Reader)
		copyDone <- err
	}()

	waitCh, errCh := b.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	done := ctx.Done()
	for {
		select {
		case <-done:
			// forward host cancellation to the engine's stop primitive
			done = nil
			if err := b.cli.ContainerStop(context.WithoutCancel(ctx), id, container.StopOptions{}); err != nil {
				b.l.Errorf("stopping container %s: %v", id[:12], err)
			}
		case err := <-errCh:
			return 0, err
		case w := <-waitCh:
			if w.Error != nil {
				return 0, errors.New(w.Error.Message)
			}
			<-copyDone
			return int(w.StatusCode), nil
		}
	}
}

func (b *DockerBackend) build(handle backend.BuildHandle) (*buildState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.builds[handle]
	if !ok {
		return nil, backend.ErrUnknownBuild
	}
	return state, nil
}

// dropBuild removes the build container and forgets the handle.
func (b *DockerBackend) dropBuild(handle backend.BuildHandle) {
	b.mu.Lock()
	state, ok := b.builds[handle]
	delete(b.builds, handle)
	b.mu.Unlock()
	if ok {
		b.removeContainer(state.containerID)
	}
}

func (b *DockerBackend) removeContainer(id string) {
	err := b.cli.ContainerRemove(context.Background(), id, container.RemoveOptions{Force: true})
	if err != nil {
		b.l.Errorf("removing container %s: %v", id[:12], err)
	}
}
