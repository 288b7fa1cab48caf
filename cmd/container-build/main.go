package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/container-build-org/container-build/builder"
	"github.com/container-build-org/container-build/config"
	"github.com/container-build-org/container-build/controller"
	"github.com/container-build-org/container-build/model"
	"github.com/container-build-org/container-build/pkg/logger"
	"github.com/container-build-org/container-build/providers/backend/docker"
	"github.com/container-build-org/container-build/runner"
)

var version = "dev"

// Distinct reserved exit codes per failure stage. On success the contained
// command's own exit code is passed through unchanged.
const (
	exitConfigError = 2
	exitBuildError  = 3
	exitRunError    = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	godotenv.Load()

	env, err := config.ReadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}

	var opts config.CLIOptions
	parser, err := kong.New(&opts,
		kong.Name("container-build"),
		kong.Description("Run a command within a generated container, geared toward build systems."),
		kong.Vars{
			"default_config_file":         config.DefaultConfigFile,
			"default_base_image":          config.DefaultBaseImage,
			"default_username":            config.DefaultUsername,
			"default_shell":               config.DefaultShell,
			"default_home_dir":            config.DefaultHomeDir,
			"default_work_dir":            config.DefaultWorkDir,
			"default_packages_file":       config.DefaultPackagesFile,
			"default_apt_sources_file":    config.DefaultAptSourcesFile,
			"default_apt_keys_dir":        config.DefaultAptKeysDir,
			"default_install_script":      config.DefaultInstallScript,
			"default_user_install_script": config.DefaultUserInstallScript,
		},
	)
	if err != nil {
		panic(err)
	}
	if _, err := parser.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}
	if env.KeepImage {
		opts.KeepImage = true
	}

	l := logger.NewLogger(env.LogLevel, env.LogType)
	switch {
	case opts.Verbose >= 2:
		l.SetLevel(logrus.TraceLevel)
	case opts.Verbose == 1:
		l.SetLevel(logrus.DebugLevel)
	}

	var buildOutput io.Writer = io.Discard
	if opts.Verbose >= 1 {
		buildOutput = os.Stderr
	}

	be, err := docker.NewDockerBackend(l, buildOutput)
	if err != nil {
		l.Errorf("error creating docker backend: %v", err)
		return exitRunError
	}
	defer be.Close()

	c := controller.NewController(version, config.OSReader{}, be, l)
	c.Runner.DockerHost = env.DockerHost

	host := model.HostIdentity{
		UID: uint32(os.Geteuid()),
		GID: uint32(os.Getegid()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := c.Run(ctx, opts, host)
	if err != nil {
		l.Error(err)

		var configErr *config.Error
		var buildErr *builder.BuildError
		var runErr *runner.RunError
		switch {
		case errors.As(err, &configErr):
			return exitConfigError
		case errors.As(err, &buildErr):
			return exitBuildError
		case errors.As(err, &runErr):
			return exitRunError
		}
		return exitRunError
	}

	return result.ExitCode
}
