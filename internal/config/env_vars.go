package config

import (
	"os"
	"time"
)

const (
	appNameVar = "APP_NAME"
	baseURLVar = "KADRO_BASE_URL"
	folderVar  = "KADRO_DATA_FOLDER"
	timeoutVar = "KADRO_REQUEST_TIMEOUT"
)

// The backend sits behind slow office links; the default timeout is tens of
// seconds, not a same-datacenter sub-second value.
const defaultRequestTimeout = 30 * time.Second

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Kadro HR")
}

// GetBaseURL returns the HR backend's API root (e.g. "https://api.kadro.example/api/v1").
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080/api/v1")
}

func (EnvVars) GetRequestTimeout() time.Duration {
	raw := GetEnv(timeoutVar, "")
	if raw == "" {
		return defaultRequestTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultRequestTimeout
	}
	return d
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderVar, "./data")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
