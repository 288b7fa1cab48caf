package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/container-build-org/container-build/model"
	"gopkg.in/ini.v1"
)

// Resolve merges built-in defaults, the build.cfg option file and explicit
// CLI values into one BuildConfig, lowest precedence first, field by field.
// Auto-detected project files are independent inputs: they are embedded
// whenever present, regardless of where the other options came from.
//
// Resolution is a pure function of (opts, reader, host); it never mutates
// host state and the returned config needs no further file-system lookups.
func Resolve(opts CLIOptions, reader FileReader, host model.HostIdentity) (*model.BuildConfig, error) {
	cwd, err := reader.Getwd()
	if err != nil {
		return nil, configErr("", err)
	}

	file, err := loadConfigFile(opts, reader)
	if err != nil {
		return nil, err
	}

	cfg := &model.BuildConfig{
		BaseImage:         stringOption(opts.BaseImage, file, "base-image", DefaultBaseImage),
		Username:          stringOption(opts.Username, file, "username", DefaultUsername),
		Shell:             stringOption(opts.Shell, file, "shell", DefaultShell),
		KeepImage:         opts.KeepImage || file.flag("keep-image"),
		DockerPassthrough: opts.DockerPassthrough || file.flag("docker-passthrough"),
		Verbose:           opts.Verbose,
	}
	cfg.Groupname = stringOption(opts.Groupname, file, "groupname", cfg.Username)
	cfg.ImageName = imageName(opts, file, cwd)

	if cfg.UID, err = identityOption(opts.UID, file, "uid", host.UID); err != nil {
		return nil, err
	}
	if cfg.GID, err = identityOption(opts.GID, file, "gid", host.GID); err != nil {
		return nil, err
	}

	cfg.HomeDir = stringOption(opts.HomeDir, file, "home-dir", DefaultHomeDir)
	workDir := stringOption(opts.WorkDir, file, "work-dir", DefaultWorkDir)
	if filepath.IsAbs(workDir) {
		cfg.WorkdirContainerPath = workDir
	} else {
		cfg.WorkdirContainerPath = filepath.Join(cfg.HomeDir, workDir)
	}

	if cfg.WorkdirHostPath, err = reader.Resolve(cwd); err != nil {
		return nil, configErr(cwd, fmt.Errorf("%w: %v", ErrBadMount, err))
	}

	if err := detectFiles(cfg, opts, file, reader); err != nil {
		return nil, err
	}

	if err := collectMounts(cfg, opts, file, reader); err != nil {
		return nil, err
	}

	cfg.Command = opts.Command
	if len(cfg.Command) == 0 {
		return nil, configErr("command", ErrMissingCommand)
	}
	if cfg.BaseImage == "" {
		return nil, configErr("base-image", ErrMissingBaseImage)
	}

	return cfg, nil
}

// fileOptions is the option namespace loaded from build.cfg. Only the first
// named section of the file is used; its name doubles as the default image
// name.
type fileOptions struct {
	path    string
	section *ini.Section
}

func loadConfigFile(opts CLIOptions, reader FileReader) (*fileOptions, error) {
	path := opts.ConfigFile
	if path == "" {
		if opts.NoConfigFile || !reader.Exists(DefaultConfigFile) {
			return &fileOptions{}, nil
		}
		path = DefaultConfigFile
	}

	data, err := reader.ReadFile(path)
	if err != nil {
		return nil, configErr(path, fmt.Errorf("%w: %v", ErrUnreadableFile, err))
	}

	f, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, data)
	if err != nil {
		return nil, configErr(path, fmt.Errorf("%w: %v", ErrMalformedConfig, err))
	}

	for _, section := range f.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		return &fileOptions{path: path, section: section}, nil
	}
	return &fileOptions{path: path}, nil
}

func (f *fileOptions) get(key string) (string, bool) {
	if f.section == nil || !f.section.HasKey(key) {
		return "", false
	}
	return f.section.Key(key).String(), true
}

// flag reports a boolean option; a key present without a value counts as set.
func (f *fileOptions) flag(key string) bool {
	v, ok := f.get(key)
	if !ok {
		return false
	}
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

func stringOption(cli *string, file *fileOptions, key, def string) string {
	if cli != nil {
		return *cli
	}
	if v, ok := file.get(key); ok {
		return v
	}
	return def
}

func identityOption(cli *uint32, file *fileOptions, key string, def uint32) (uint32, error) {
	if cli != nil {
		return *cli, nil
	}
	v, ok := file.get(key)
	if !ok {
		return def, nil
	}
	parsed, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, configErr(file.path, fmt.Errorf("%w: %s=%q", ErrInvalidIdentity, key, v))
	}
	return uint32(parsed), nil
}

func imageName(opts CLIOptions, file *fileOptions, cwd string) string {
	if opts.Name != nil {
		return *opts.Name
	}
	if v, ok := file.get("name"); ok {
		return v
	}
	if file.section != nil {
		return file.section.Name()
	}
	return filepath.Base(cwd) + "-builder"
}

// detectPath locates an auxiliary input file: an explicit path (CLI or
// build.cfg) always wins, otherwise the conventional default path is used
// when it exists and has not been suppressed.
func detectPath(cli *string, file *fileOptions, key string, suppressed bool, def string, reader FileReader) (string, bool) {
	if cli != nil {
		return *cli, true
	}
	if v, ok := file.get(key); ok {
		return v, true
	}
	if suppressed || !reader.Exists(def) {
		return "", false
	}
	return def, true
}

func readDetected(reader FileReader, path string) ([]byte, error) {
	data, err := reader.ReadFile(path)
	if err != nil {
		return nil, configErr(path, fmt.Errorf("%w: %v", ErrUnreadableFile, err))
	}
	return data, nil
}

func detectFiles(cfg *model.BuildConfig, opts CLIOptions, file *fileOptions, reader FileReader) error {
	if path, ok := detectPath(opts.PackagesFile, file, "packages-file", false, DefaultPackagesFile, reader); ok {
		data, err := readDetected(reader, path)
		if err != nil {
			return err
		}
		cfg.Packages = append(cfg.Packages, strings.Fields(string(data))...)
	}

	packageArgs := opts.Package
	if len(packageArgs) == 0 {
		if v, ok := file.get("package"); ok {
			packageArgs = []string{v}
		}
	}
	for _, arg := range packageArgs {
		cfg.Packages = append(cfg.Packages, strings.Fields(arg)...)
	}

	if path, ok := detectPath(opts.AptSourcesFile, file, "apt-sources-file",
		opts.NoAptSourcesFile || file.flag("no-apt-sources-file"), DefaultAptSourcesFile, reader); ok {
		data, err := readDetected(reader, path)
		if err != nil {
			return err
		}
		cfg.SourcesList = data
	}

	if dir, ok := detectPath(opts.AptKeys, file, "apt-keys",
		opts.NoAptKeys || file.flag("no-apt-keys"), DefaultAptKeysDir, reader); ok {
		matches, err := reader.Glob(filepath.Join(dir, "*.gpg"))
		if err != nil {
			return configErr(dir, fmt.Errorf("%w: %v", ErrUnreadableFile, err))
		}
		for _, match := range matches {
			data, err := readDetected(reader, match)
			if err != nil {
				return err
			}
			cfg.TrustKeys = append(cfg.TrustKeys, model.TrustKey{
				Name: filepath.Base(match),
				Data: data,
			})
		}
	}

	if path, ok := detectPath(opts.InstallScript, file, "install-script",
		opts.NoInstallScript || file.flag("no-install-script"), DefaultInstallScript, reader); ok {
		data, err := readDetected(reader, path)
		if err != nil {
			return err
		}
		cfg.InstallScript = data
	}

	if path, ok := detectPath(opts.UserInstallScript, file, "user-install-script",
		opts.NoUserInstallScript || file.flag("no-user-install-script"), DefaultUserInstallScript, reader); ok {
		data, err := readDetected(reader, path)
		if err != nil {
			return err
		}
		cfg.UserInstallScript = data
	}

	return nil
}

// collectMounts gathers the extra bind mounts and, unless suppressed, the
// mounts needed so symlinks to directories outside a mount still resolve
// inside the container.
func collectMounts(cfg *model.BuildConfig, opts CLIOptions, file *fileOptions, reader FileReader) error {
	recursive := !(opts.NoRecursiveMount || file.flag("no-recursive-mount"))

	addLinks := func(hostPath, containerPath string) {
		if !recursive {
			return
		}
		links, err := reader.DirSymlinks(hostPath)
		if err != nil {
			return
		}
		names := make([]string, 0, len(links))
		for name := range links {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cfg.Mounts = append(cfg.Mounts, model.Mount{
				HostPath:      links[name],
				ContainerPath: filepath.Join(containerPath, name),
			})
		}
	}

	addLinks(cfg.WorkdirHostPath, cfg.WorkdirContainerPath)

	for _, arg := range opts.Mount {
		src, err := reader.Resolve(arg)
		if err != nil {
			return configErr(arg, fmt.Errorf("%w: %v", ErrBadMount, err))
		}
		dst := filepath.Join(cfg.WorkdirContainerPath, filepath.Base(arg))
		cfg.Mounts = append(cfg.Mounts, model.Mount{HostPath: src, ContainerPath: dst})
		addLinks(src, dst)
	}

	return nil
}
