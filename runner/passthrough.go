package runner

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/container-build-org/container-build/model"
)

var (
	ErrPassthroughScheme = errors.New("passthrough of daemon socket scheme not supported")
	ErrPassthroughAccess = errors.New("daemon socket not writable by group owner")
	ErrPassthroughGroup  = errors.New("daemon socket owned by group 0 not supported")
)

// passthroughSocket resolves the engine's unix socket so it can be mounted
// into the container, and returns the gid the build user must be added to
// when the socket is not owned by them.
func passthroughSocket(dockerHost string, uid uint32) (model.Mount, string, error) {
	host, err := url.Parse(dockerHost)
	if err != nil {
		return model.Mount{}, "", err
	}
	if host.Scheme != "unix" {
		return model.Mount{}, "", fmt.Errorf("%w: %q", ErrPassthroughScheme, host.Scheme)
	}

	src, err := filepath.EvalSymlinks(host.Path)
	if err != nil {
		return model.Mount{}, "", err
	}

	var stat syscall.Stat_t
	if err := syscall.Stat(src, &stat); err != nil {
		return model.Mount{}, "", err
	}

	mount := model.Mount{HostPath: src, ContainerPath: host.Path}
	if stat.Uid == uid {
		return mount, "", nil
	}

	if stat.Mode&0o060 != 0o060 {
		return model.Mount{}, "", fmt.Errorf("%w: %s", ErrPassthroughAccess, src)
	}
	if stat.Gid == 0 {
		return model.Mount{}, "", fmt.Errorf("%w: %s", ErrPassthroughGroup, src)
	}

	return mount, strconv.FormatUint(uint64(stat.Gid), 10), nil
}
