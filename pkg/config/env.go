package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${NAME} and ${NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnvVars replaces ${NAME} and ${NAME:-default} references with values
// from the environment. As in the shell, the default applies when the
// variable is unset or empty. Other $ sequences are left alone.
func ExpandEnvVars(input string) string {
	return expandWith(input, os.Getenv)
}

func expandWith(input string, getenv func(string) string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		if val := getenv(sub[1]); val != "" {
			return val
		}
		return sub[2]
	})
}
