// Package builder submits an assembled build context to the container
// backend, step by step, in order.
package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/container-build-org/container-build/model"
	"github.com/container-build-org/container-build/providers/backend"
)

var ErrEmptyContext = errors.New("empty build context")

// BuildError reports a failed build step: which step, at what position, and
// the backend's raw diagnostic. Step failures are contract violations in the
// user's own config and are never retried.
type BuildError struct {
	StepIndex  int
	Step       string
	Diagnostic string
	Err        error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build step %d (%s) failed: %s", e.StepIndex, e.Step, e.Diagnostic)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

type ImageBuilder struct {
	backend backend.Backend
	l       *logrus.Logger
}

func NewImageBuilder(be backend.Backend, l *logrus.Logger) *ImageBuilder {
	return &ImageBuilder{backend: be, l: l}
}

// Build applies the context's steps strictly in order. The first step
// failure aborts the rest and discards the in-progress build; the returned
// BuildError references the failed step.
func (ib *ImageBuilder) Build(ctx context.Context, bctx *model.BuildContext, ref string, labels map[string]string) (*model.BuiltImage, error) {
	if len(bctx.Steps) == 0 || bctx.Steps[0].Kind != model.StepFromBase {
		return nil, &BuildError{Step: string(model.StepFromBase), Diagnostic: ErrEmptyContext.Error(), Err: ErrEmptyContext}
	}

	handle, err := ib.backend.BeginBuild(ctx, bctx.BaseImage)
	if err != nil {
		return nil, &BuildError{Step: string(model.StepFromBase), Diagnostic: err.Error(), Err: err}
	}

	for i, step := range bctx.Steps[1:] {
		ib.l.Infof("applying step %d/%d: %s", i+1, len(bctx.Steps)-1, step.Kind)
		if err := ib.backend.ApplyStep(ctx, handle, step); err != nil {
			ib.backend.AbortBuild(ctx, handle)
			return nil, &BuildError{StepIndex: i + 1, Step: string(step.Kind), Diagnostic: err.Error(), Err: err}
		}
	}

	imageID, err := ib.backend.FinalizeBuild(ctx, handle, ref, labels)
	if err != nil {
		ib.backend.AbortBuild(ctx, handle)
		return nil, &BuildError{StepIndex: len(bctx.Steps), Step: "finalize", Diagnostic: err.Error(), Err: err}
	}

	ib.l.Infof("image built successfully: id=%s", imageID)
	return &model.BuiltImage{ID: imageID, Ref: ref}, nil
}
