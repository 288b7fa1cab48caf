package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/container-build-org/container-build/model"
	"github.com/container-build-org/container-build/providers/backend"
)

const (
	stagingDir = "/tmp/build"
	aptKeysDir = stagingDir + "/apt-keys"

	// how much step output to keep for the failure diagnostic
	diagnosticTail = 2048
)

func (b *DockerBackend) ApplyStep(ctx context.Context, handle backend.BuildHandle, step model.BuildStep) error {
	state, err := b.build(handle)
	if err != nil {
		return err
	}

	user, cmd, files, err := stepCommand(step, state)
	if err != nil {
		return err
	}

	if len(files) > 0 {
		if err := b.stageFiles(ctx, state.containerID, files); err != nil {
			return err
		}
	}

	return b.exec(ctx, state.containerID, user, cmd)
}

// stepCommand translates a build step into the shell command that realizes
// it, the files it needs staged first and the user it runs as. The
// create-user step also records the identity on the build state so the
// committed image carries matching defaults.
func stepCommand(step model.BuildStep, state *buildState) (user, cmd string, files []stagedFile, err error) {
	user = "root"

	switch step.Kind {
	case model.StepInstallTrustKeys:
		keyPaths := make([]string, 0, len(step.TrustKeys))
		for _, key := range step.TrustKeys {
			p := path.Join(aptKeysDir, key.Name)
			files = append(files, stagedFile{path: p, mode: 0o644, data: key.Data})
			keyPaths = append(keyPaths, shellQuote(p))
		}
		cmd = "apt-get update" +
			" && apt-get install --no-install-recommends -y gnupg software-properties-common" +
			" && apt-key add " + strings.Join(keyPaths, " ") +
			" && rm -rf /var/lib/apt/lists/*"

	case model.StepInstallSourcesList:
		files = append(files, stagedFile{path: stagingDir + "/sources.list", mode: 0o644, data: step.SourcesList})
		cmd = "apt-get update" +
			" && apt-get install --no-install-recommends -y apt-transport-https" +
			" && install -m 0644 " + stagingDir + "/sources.list /etc/apt/sources.list.d/build.list" +
			" && rm -rf /var/lib/apt/lists/*"

	case model.StepUpdatePackageIndex:
		cmd = "apt-get update"

	case model.StepInstallPackages:
		quoted := make([]string, 0, len(step.Packages))
		for _, pkg := range step.Packages {
			quoted = append(quoted, shellQuote(pkg))
		}
		cmd = "apt-get install --no-install-recommends -y " + strings.Join(quoted, " ") +
			" && rm -rf /var/lib/apt/lists/*"

	case model.StepCreateGroup:
		cmd = fmt.Sprintf("groupadd -o -g %d %s", step.GID, shellQuote(step.Groupname))

	case model.StepCreateUser:
		cmd = fmt.Sprintf("useradd -m -o -u %d -g %d -d %s -s %s %s",
			step.UID, step.GID,
			shellQuote(step.HomeDir), shellQuote(step.Shell), shellQuote(step.Username))
		state.username = step.Username
		state.homeDir = step.HomeDir
		state.shell = step.Shell

	case model.StepRunAsRoot:
		p := path.Join(stagingDir, step.ScriptName)
		files = append(files, stagedFile{path: p, mode: 0o755, data: step.Script})
		cmd = shellQuote(p)

	case model.StepRunAsUser:
		p := path.Join(stagingDir, step.ScriptName)
		files = append(files, stagedFile{path: p, mode: 0o755, data: step.Script})
		user = step.RunAs
		cmd = shellQuote(p)

	default:
		return "", "", nil, fmt.Errorf("%w: %s", backend.ErrUnknownStep, step.Kind)
	}

	return user, cmd, files, nil
}

// exec runs a shell command inside the build container and fails with the
// command's trailing output when it exits non-zero.
func (b *DockerBackend) exec(ctx context.Context, containerID, user, cmd string) error {
	b.l.Debugf("exec (%s): %s", user, cmd)

	execResp, err := b.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		User:         user,
		Cmd:          []string{"/bin/sh", "-c", cmd},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return err
	}

	attach, err := b.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return err
	}
	defer attach.Close()

	var output bytes.Buffer
	sink := io.MultiWriter(&output, b.out)
	if _, err := stdcopy.StdCopy(sink, sink, attach.Reader); err != nil {
		return err
	}

	inspect, err := b.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return err
	}
	if inspect.ExitCode != 0 {
		return fmt.Errorf("exit code %d: %s", inspect.ExitCode, tail(output.Bytes()))
	}
	return nil
}

type stagedFile struct {
	path string
	mode int64
	data []byte
}

// stageFiles copies blobs into the build container via an in-memory tar
// stream, creating the staging directories along the way.
func (b *DockerBackend) stageFiles(ctx context.Context, containerID string, files []stagedFile) error {
	archive, err := stagingArchive(files)
	if err != nil {
		return err
	}
	return b.cli.CopyToContainer(ctx, containerID, "/", archive, container.CopyToContainerOptions{})
}

func stagingArchive(files []stagedFile) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	now := time.Now()

	dirs := map[string]bool{}
	for _, file := range files {
		dir := path.Dir(file.path)
		for dir != "/" && dir != "." && !dirs[dir] {
			dirs[dir] = true
			dir = path.Dir(dir)
		}
	}
	dirPaths := make([]string, 0, len(dirs))
	for dir := range dirs {
		dirPaths = append(dirPaths, dir)
	}
	// lexicographic order puts parents before children
	sort.Strings(dirPaths)
	for _, dir := range dirPaths {
		header := &tar.Header{
			Typeflag: tar.TypeDir,
			Name:     strings.TrimPrefix(dir, "/") + "/",
			Mode:     0o755,
			ModTime:  now,
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, err
		}
	}

	for _, file := range files {
		header := &tar.Header{
			Name:    strings.TrimPrefix(file.path, "/"),
			Mode:    file.mode,
			Size:    int64(len(file.data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, err
		}
		if _, err := tw.Write(file.data); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	return &buf, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func tail(output []byte) string {
	if len(output) > diagnosticTail {
		output = output[len(output)-diagnosticTail:]
	}
	return strings.TrimSpace(string(output))
}
