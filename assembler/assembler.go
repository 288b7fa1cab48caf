// Package assembler turns a resolved build configuration into the ordered
// sequence of image-build steps submitted to the container backend.
package assembler

import (
	"path/filepath"

	"github.com/container-build-org/container-build/model"
)

// Assemble produces the build context for a configuration. The step order is
// a fixed policy, independent of the order the inputs were discovered in:
// trust keys must exist before the sources list that references them, the
// package index must be current before installs, the user must exist before
// any script that may reference it, and user-level provisioning is strictly
// last. Absent optional inputs simply omit their step.
//
// Assembly is a pure data transformation: two calls with the same
// configuration yield identical contexts.
func Assemble(cfg *model.BuildConfig) *model.BuildContext {
	bctx := &model.BuildContext{BaseImage: cfg.BaseImage}

	add := func(step model.BuildStep) {
		bctx.Steps = append(bctx.Steps, step)
	}

	add(model.BuildStep{Kind: model.StepFromBase, BaseImage: cfg.BaseImage})

	if len(cfg.TrustKeys) > 0 {
		add(model.BuildStep{Kind: model.StepInstallTrustKeys, TrustKeys: cfg.TrustKeys})
	}

	if len(cfg.SourcesList) > 0 {
		add(model.BuildStep{Kind: model.StepInstallSourcesList, SourcesList: cfg.SourcesList})
	}

	if len(cfg.TrustKeys) > 0 || len(cfg.SourcesList) > 0 || len(cfg.Packages) > 0 {
		add(model.BuildStep{Kind: model.StepUpdatePackageIndex})
	}

	if len(cfg.Packages) > 0 {
		add(model.BuildStep{Kind: model.StepInstallPackages, Packages: cfg.Packages})
	}

	add(model.BuildStep{
		Kind:      model.StepCreateGroup,
		Groupname: cfg.Groupname,
		GID:       cfg.GID,
	})
	add(model.BuildStep{
		Kind:     model.StepCreateUser,
		Username: cfg.Username,
		UID:      cfg.UID,
		GID:      cfg.GID,
		HomeDir:  homeDir(cfg),
		Shell:    cfg.Shell,
	})

	if len(cfg.InstallScript) > 0 {
		add(model.BuildStep{
			Kind:       model.StepRunAsRoot,
			Script:     cfg.InstallScript,
			ScriptName: "install.sh",
		})
	}

	if len(cfg.UserInstallScript) > 0 {
		add(model.BuildStep{
			Kind:       model.StepRunAsUser,
			Script:     cfg.UserInstallScript,
			ScriptName: "user_install.sh",
			RunAs:      cfg.Username,
		})
	}

	return bctx
}

func homeDir(cfg *model.BuildConfig) string {
	if cfg.HomeDir != "" {
		return cfg.HomeDir
	}
	return filepath.Dir(cfg.WorkdirContainerPath)
}
