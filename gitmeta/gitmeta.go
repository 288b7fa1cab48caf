// Package gitmeta extracts best-effort provenance from the host working
// directory for labelling built images. A directory that is not a git
// repository is not an error, it just yields nothing.
package gitmeta

import (
	"github.com/go-git/go-git/v5"
)

type Info struct {
	Remote string
	Commit string
}

// Describe returns the origin remote URL and HEAD commit of the repository
// containing path, when there is one.
func Describe(path string) (Info, bool) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Info{}, false
	}

	info := Info{}
	if head, err := repo.Head(); err == nil {
		info.Commit = head.Hash().String()
	}
	if remote, err := repo.Remote(git.DefaultRemoteName); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.Remote = urls[0]
		}
	}

	if info.Commit == "" && info.Remote == "" {
		return Info{}, false
	}
	return info, true
}
