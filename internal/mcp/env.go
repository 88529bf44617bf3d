package mcp

import (
	"os"
	"regexp"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} placeholders with environment values. Expansion
// happens only when building a connection; stored configs keep the
// placeholder form.
func expandEnv(value string) string {
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// expandEnvAll expands ${VAR} placeholders in every element.
func expandEnvAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = expandEnv(v)
	}
	return out
}
