package model

// StepKind discriminates the build step variants.
type StepKind string

const (
	StepFromBase           StepKind = "from base"
	StepInstallTrustKeys   StepKind = "install trust keys"
	StepInstallSourcesList StepKind = "install sources list"
	StepUpdatePackageIndex StepKind = "update package index"
	StepInstallPackages    StepKind = "install packages"
	StepCreateGroup        StepKind = "create group"
	StepCreateUser         StepKind = "create user"
	StepRunAsRoot          StepKind = "run install script"
	StepRunAsUser          StepKind = "run user install script"
)

type (
	// BuildStep is one atomic, ordered instruction applied to an in-progress
	// image build. Only the fields belonging to Kind are populated.
	BuildStep struct {
		Kind StepKind

		// StepFromBase
		BaseImage string

		// StepInstallTrustKeys
		TrustKeys []TrustKey

		// StepInstallSourcesList
		SourcesList []byte

		// StepInstallPackages
		Packages []string

		// StepCreateGroup / StepCreateUser
		Groupname string
		GID       uint32
		Username  string
		UID       uint32
		HomeDir   string
		Shell     string

		// StepRunAsRoot / StepRunAsUser
		Script     []byte
		ScriptName string
		RunAs      string
	}

	// BuildContext is the full ordered sequence of build steps plus the base
	// image reference. Constructed once per invocation, consumed exactly once.
	BuildContext struct {
		BaseImage string
		Steps     []BuildStep
	}
)
