package config

import "os"

const (
	// EnvKey is the environment variable naming the active config profile.
	EnvKey = "APP_ENV"
	// DefaultEnv is used when EnvKey is unset, matching the teacher's
	// local-development default.
	DefaultEnv = "tst001"
)

// AppEnv returns the value of APP_ENV, or DefaultEnv if unset.
func AppEnv() (string, error) {
	if env := os.Getenv(EnvKey); env != "" {
		return env, nil
	}
	return DefaultEnv, nil
}
