package gitmeta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"gotest.tools/assert"
)

func TestDescribeNotARepository(t *testing.T) {
	_, ok := Describe(t.TempDir())
	assert.Assert(t, !ok)
}

func TestDescribeEmptyRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	assert.NilError(t, err)

	// no commits and no remotes means nothing worth labelling
	_, ok := Describe(dir)
	assert.Assert(t, !ok)
}

func TestDescribeRemote(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	assert.NilError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{"https://example.org/proj.git"},
	})
	assert.NilError(t, err)

	info, ok := Describe(dir)
	assert.Assert(t, ok)
	assert.Equal(t, info.Remote, "https://example.org/proj.git")
}

func TestDescribeDetectsFromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	assert.NilError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{"https://example.org/proj.git"},
	})
	assert.NilError(t, err)

	sub := filepath.Join(dir, "a", "b")
	assert.NilError(t, os.MkdirAll(sub, 0o755))

	info, ok := Describe(sub)
	assert.Assert(t, ok)
	assert.Equal(t, info.Remote, "https://example.org/proj.git")
}
