// Package controller drives the pipeline: resolve, assemble, build, run,
// clean up.
package controller

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/container-build-org/container-build/assembler"
	"github.com/container-build-org/container-build/builder"
	"github.com/container-build-org/container-build/config"
	"github.com/container-build-org/container-build/gitmeta"
	"github.com/container-build-org/container-build/model"
	"github.com/container-build-org/container-build/providers/backend"
	"github.com/container-build-org/container-build/runner"
)

type Controller struct {
	Builder *builder.ImageBuilder
	Runner  *runner.ContainerRunner

	version string
	reader  config.FileReader
	backend backend.Backend
	l       *logrus.Logger
	now     func() time.Time
}

func NewController(version string, reader config.FileReader, be backend.Backend, l *logrus.Logger) *Controller {
	return &Controller{
		Builder: builder.NewImageBuilder(be, l),
		Runner:  runner.NewContainerRunner(be, l),
		version: version,
		reader:  reader,
		backend: be,
		l:       l,
		now:     time.Now,
	}
}

// Run executes one full invocation. The built image is exclusively owned
// here: it is removed after the run on every path, success or failure,
// unless the keep-image option is set. If the build itself fails no image
// exists and nothing needs releasing.
func (c *Controller) Run(ctx context.Context, opts config.CLIOptions, host model.HostIdentity) (*model.RunResult, error) {
	cfg, err := config.Resolve(opts, c.reader, host)
	if err != nil {
		return nil, err
	}
	c.l.Debugf("resolved config: image=%s base=%s uid=%d gid=%d packages=%d",
		cfg.ImageName, cfg.BaseImage, cfg.UID, cfg.GID, len(cfg.Packages))

	bctx := assembler.Assemble(cfg)
	c.l.Infof("building image %s from %s (%d steps)", cfg.ImageName, cfg.BaseImage, len(bctx.Steps))

	img, err := c.Builder.Build(ctx, bctx, cfg.ImageName, c.labels(cfg))
	if err != nil {
		return nil, err
	}

	defer func() {
		if cfg.KeepImage {
			c.l.Infof("keeping image %s (%s)", img.Ref, img.ID)
			return
		}
		if err := c.backend.RemoveImage(context.WithoutCancel(ctx), img.ID); err != nil {
			c.l.Errorf("error removing image %s: %v", img.ID, err)
		}
	}()

	return c.Runner.Run(ctx, img, cfg)
}

func (c *Controller) labels(cfg *model.BuildConfig) map[string]string {
	labels := map[string]string{
		"org.container-build.version":  c.version,
		"org.container-build.base":     cfg.BaseImage,
		"org.container-build.built-at": c.now().Format("02/01/2006 15:04:05"),
	}
	if info, ok := gitmeta.Describe(cfg.WorkdirHostPath); ok {
		if info.Remote != "" {
			labels["org.container-build.repo"] = info.Remote
		}
		if info.Commit != "" {
			labels["org.container-build.commit"] = info.Commit
		}
	}
	return labels
}
