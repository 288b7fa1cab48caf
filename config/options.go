package config

import "path/filepath"

// ConfigDirectory is the project directory holding all auto-detected inputs.
const ConfigDirectory = "container-build"

const (
	DefaultBaseImage = "debian:stretch-slim"
	DefaultUsername  = "build"
	DefaultHomeDir   = "/home/build"
	DefaultWorkDir   = "src"
	DefaultShell     = "/bin/bash"
)

var (
	DefaultConfigFile        = filepath.Join(ConfigDirectory, "build.cfg")
	DefaultAptSourcesFile    = filepath.Join(ConfigDirectory, "sources.list")
	DefaultAptKeysDir        = filepath.Join(ConfigDirectory, "apt-keys")
	DefaultPackagesFile      = filepath.Join(ConfigDirectory, "packages")
	DefaultInstallScript     = filepath.Join(ConfigDirectory, "install.sh")
	DefaultUserInstallScript = filepath.Join(ConfigDirectory, "user_install.sh")
)

// CLIOptions is the flag surface shared between the command line and the
// build.cfg option namespace. Pointer fields distinguish "not given" from a
// zero value so the file/flag precedence can be applied field by field.
type CLIOptions struct {
	ConfigFile   string `short:"c" help:"Path of config file. Defaults to '${default_config_file}', if it exists."`
	NoConfigFile bool   `help:"Suppress using the default config file path."`

	Name      *string `short:"n" help:"Name of the generated image. Defaults to the working directory name suffixed with '-builder'."`
	BaseImage *string `help:"Base image to derive the container from. Defaults to '${default_base_image}'."`

	Username  *string `help:"Username used to run COMMAND in the container. Defaults to '${default_username}'."`
	Groupname *string `help:"Group name used to run COMMAND in the container. Defaults to the username."`
	UID       *uint32 `short:"u" name:"uid" help:"UID used to run COMMAND in the container. Defaults to the current euid."`
	GID       *uint32 `short:"g" name:"gid" help:"GID used to run COMMAND in the container. Defaults to the current egid."`
	Shell     *string `help:"Path of shell used to run COMMAND in the container. Defaults to '${default_shell}'."`
	HomeDir   *string `help:"Path of home directory used in the container. Defaults to '${default_home_dir}'."`
	WorkDir   *string `help:"Path of working directory to run COMMAND in, optionally relative to the home directory. Defaults to '${default_work_dir}'."`

	Package      []string `short:"p" help:"Apt package specification of a package to install in the container. May be given multiple times."`
	PackagesFile *string  `help:"Path of file containing apt package specifications. Defaults to '${default_packages_file}', if it exists."`

	AptSourcesFile   *string `help:"Path of apt sources.list to use during package installation. Defaults to '${default_apt_sources_file}', if it exists."`
	NoAptSourcesFile bool    `help:"Suppress using the default apt sources path."`

	AptKeys   *string `help:"Path of directory containing .gpg files to add to the trusted key store. Defaults to '${default_apt_keys_dir}', if it exists."`
	NoAptKeys bool    `help:"Suppress using the default apt keys path."`

	InstallScript   *string `help:"Path of script run as root during image creation. Defaults to '${default_install_script}', if it exists."`
	NoInstallScript bool    `help:"Suppress using the default install script path."`

	UserInstallScript   *string `help:"Path of script run as the created user during image creation. Defaults to '${default_user_install_script}', if it exists."`
	NoUserInstallScript bool    `help:"Suppress using the default user install script path."`

	Mount            []string `short:"m" help:"Extra directory to bind mount under the working directory in the container. May be given multiple times."`
	NoRecursiveMount bool     `help:"Suppress recursively mounting symlinks to directories outside their containing mount."`

	KeepImage         bool `help:"Keep the built image after the run instead of removing it."`
	DockerPassthrough bool `help:"Mount the docker unix socket inside the container, adding the user to the group owning it."`

	Verbose int `short:"v" type:"counter" help:"Enable verbose output. May be given multiple times."`

	Command []string `arg:"" optional:"" passthrough:"" help:"Command to run within the container."`
}
