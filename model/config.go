package model

type (
	// HostIdentity carries the invoking user's numeric identity. It is an
	// explicit input to config resolution, never an ambient read.
	HostIdentity struct {
		UID uint32
		GID uint32
	}

	// TrustKey is a single package-manager trust key, keyed by its file name.
	TrustKey struct {
		Name string
		Data []byte
	}

	// Mount is a host directory bind-mounted into the container.
	Mount struct {
		HostPath      string
		ContainerPath string
	}

	// BuildConfig is the fully merged, validated build configuration.
	// Once resolved it is fully determined: all auxiliary file contents are
	// embedded and no file-system lookups happen downstream.
	BuildConfig struct {
		BaseImage string
		ImageName string

		Username  string
		Groupname string
		UID       uint32
		GID       uint32
		Shell     string

		HomeDir              string
		WorkdirHostPath      string
		WorkdirContainerPath string
		Mounts               []Mount

		Command []string

		SourcesList       []byte
		TrustKeys         []TrustKey
		Packages          []string
		InstallScript     []byte
		UserInstallScript []byte

		KeepImage         bool
		DockerPassthrough bool
		Verbose           int
	}
)

// BackendKind names a container backend implementation.
type BackendKind string
