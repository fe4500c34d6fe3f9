package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

var environmentAliases = map[string]string{
	"dev":  environmentDevelopment,
	"prod": environmentProduction,
	"stag": environmentStaging,
}

// AppEnvironment reads the application environment from APP_ENV, normalising
// common aliases. It defaults to development when no value is set.
func AppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// IsProductionLike reports whether the environment should behave like a
// production deployment. Production-like environments refuse to run with
// missing API credentials instead of logging and continuing.
func IsProductionLike(env string) bool {
	switch env {
	case environmentProduction, environmentStaging:
		return true
	default:
		return false
	}
}

// ResolveConfigPath selects an environment specific configuration file when
// one exists next to the default, e.g. config.production.yml for APP_ENV=prod.
// An explicitly provided non-default path always wins.
func ResolveConfigPath(path, defaultPath string) string {
	if path != "" && path != defaultPath {
		return path
	}
	if path == "" {
		path = defaultPath
	}

	env := AppEnvironment()
	if env == environmentDevelopment {
		return path
	}

	ext := filepath.Ext(defaultPath)
	envPath := fmt.Sprintf("%s.%s%s", strings.TrimSuffix(defaultPath, ext), env, ext)
	if _, err := os.Stat(envPath); err == nil {
		return envPath
	}
	return path
}
