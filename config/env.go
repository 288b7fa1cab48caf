package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Env holds the process-environment settings that sit outside the build.cfg
// option namespace.
type Env struct {
	LogLevel   string `env:"LOG_LEVEL"  env-default:"warning"`
	LogType    string `env:"LOG_TYPE"   env-default:"text"`
	DockerHost string `env:"DOCKER_HOST" env-default:"unix:///var/run/docker.sock"`
	KeepImage  bool   `env:"BUILDER_KEEP_IMAGE" env-default:"false"`
}

func ReadEnv() (*Env, error) {
	env := &Env{}
	if err := cleanenv.ReadEnv(env); err != nil {
		return nil, fmt.Errorf("environment error: %w", err)
	}
	return env, nil
}
