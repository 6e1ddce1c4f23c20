package config

import "time"

// Config is the SDK's runtime configuration surface.
type Config interface {
	GetAppName() string
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetDataFolder() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
