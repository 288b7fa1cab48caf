package docker

import (
	"archive/tar"
	"errors"
	"io"
	"strings"
	"testing"

	"gotest.tools/assert"

	"github.com/container-build-org/container-build/model"
	"github.com/container-build-org/container-build/providers/backend"
)

func TestStepCommandTrustKeys(t *testing.T) {
	user, cmd, files, err := stepCommand(model.BuildStep{
		Kind: model.StepInstallTrustKeys,
		TrustKeys: []model.TrustKey{
			{Name: "vendor.gpg", Data: []byte("key-data")},
		},
	}, &buildState{})
	assert.NilError(t, err)

	assert.Equal(t, user, "root")
	assert.Equal(t, len(files), 1)
	assert.Equal(t, files[0].path, "/tmp/build/apt-keys/vendor.gpg")
	assert.Assert(t, strings.Contains(cmd, "apt-get install --no-install-recommends -y gnupg software-properties-common"))
	assert.Assert(t, strings.Contains(cmd, "apt-key add '/tmp/build/apt-keys/vendor.gpg'"))
	assert.Assert(t, strings.HasSuffix(cmd, "rm -rf /var/lib/apt/lists/*"))
}

func TestStepCommandSourcesList(t *testing.T) {
	_, cmd, files, err := stepCommand(model.BuildStep{
		Kind:        model.StepInstallSourcesList,
		SourcesList: []byte("deb x y z\n"),
	}, &buildState{})
	assert.NilError(t, err)

	assert.Equal(t, files[0].path, "/tmp/build/sources.list")
	assert.Assert(t, strings.Contains(cmd, "apt-transport-https"))
	assert.Assert(t, strings.Contains(cmd, "/etc/apt/sources.list.d/build.list"))
}

func TestStepCommandInstallPackages(t *testing.T) {
	_, cmd, _, err := stepCommand(model.BuildStep{
		Kind:     model.StepInstallPackages,
		Packages: []string{"gcc", "libfoo=1.2*"},
	}, &buildState{})
	assert.NilError(t, err)

	assert.Equal(t, cmd,
		"apt-get install --no-install-recommends -y 'gcc' 'libfoo=1.2*' && rm -rf /var/lib/apt/lists/*")
}

func TestStepCommandCreateIdentity(t *testing.T) {
	_, cmd, _, err := stepCommand(model.BuildStep{
		Kind:      model.StepCreateGroup,
		Groupname: "build",
		GID:       1000,
	}, &buildState{})
	assert.NilError(t, err)
	assert.Equal(t, cmd, "groupadd -o -g 1000 'build'")

	state := &buildState{}
	_, cmd, _, err = stepCommand(model.BuildStep{
		Kind:     model.StepCreateUser,
		Username: "build",
		UID:      1000,
		GID:      1000,
		HomeDir:  "/home/build",
		Shell:    "/bin/bash",
	}, state)
	assert.NilError(t, err)
	assert.Equal(t, cmd, "useradd -m -o -u 1000 -g 1000 -d '/home/build' -s '/bin/bash' 'build'")
	// recorded for the image commit config
	assert.Equal(t, state.username, "build")
	assert.Equal(t, state.homeDir, "/home/build")
	assert.Equal(t, state.shell, "/bin/bash")
}

func TestStepCommandScripts(t *testing.T) {
	user, cmd, files, err := stepCommand(model.BuildStep{
		Kind:       model.StepRunAsRoot,
		Script:     []byte("#!/bin/sh\necho hi\n"),
		ScriptName: "install.sh",
	}, &buildState{})
	assert.NilError(t, err)
	assert.Equal(t, user, "root")
	assert.Equal(t, cmd, "'/tmp/build/install.sh'")
	assert.Equal(t, files[0].mode, int64(0o755))

	user, cmd, _, err = stepCommand(model.BuildStep{
		Kind:       model.StepRunAsUser,
		Script:     []byte("#!/bin/sh\necho hi\n"),
		ScriptName: "user_install.sh",
		RunAs:      "build",
	}, &buildState{})
	assert.NilError(t, err)
	assert.Equal(t, user, "build")
	assert.Equal(t, cmd, "'/tmp/build/user_install.sh'")
}

func TestStepCommandUnknownKind(t *testing.T) {
	_, _, _, err := stepCommand(model.BuildStep{Kind: "no such step"}, &buildState{})
	assert.Assert(t, errors.Is(err, backend.ErrUnknownStep))
}

func TestStagingArchiveLayout(t *testing.T) {
	archive, err := stagingArchive([]stagedFile{
		{path: "/tmp/build/apt-keys/a.gpg", mode: 0o644, data: []byte("key")},
		{path: "/tmp/build/install.sh", mode: 0o755, data: []byte("echo hi")},
	})
	assert.NilError(t, err)

	tr := tar.NewReader(archive)
	var names []string
	contents := map[string]string{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		assert.NilError(t, err)
		names = append(names, header.Name)
		if header.Typeflag != tar.TypeDir {
			data, err := io.ReadAll(tr)
			assert.NilError(t, err)
			contents[header.Name] = string(data)
		}
	}

	// parent directories come first so extraction never hits a missing dir
	assert.DeepEqual(t, names, []string{
		"tmp/",
		"tmp/build/",
		"tmp/build/apt-keys/",
		"tmp/build/apt-keys/a.gpg",
		"tmp/build/install.sh",
	})
	assert.Equal(t, contents["tmp/build/apt-keys/a.gpg"], "key")
	assert.Equal(t, contents["tmp/build/install.sh"], "echo hi")
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, shellQuote("plain"), "'plain'")
	assert.Equal(t, shellQuote("it's"), `'it'\''s'`)
	assert.Equal(t, shellQuote("a b;c"), "'a b;c'")
}

func TestTail(t *testing.T) {
	assert.Equal(t, tail([]byte("  short output\n")), "short output")

	long := strings.Repeat("x", diagnosticTail+100) + "END"
	assert.Assert(t, strings.HasSuffix(tail([]byte(long)), "END"))
	assert.Assert(t, len(tail([]byte(long))) <= diagnosticTail)
}
