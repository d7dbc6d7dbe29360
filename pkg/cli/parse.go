package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// ConfigEnvVar names the default configuration path when no --config flag
// is given.
const ConfigEnvVar = "MOCKHOST_CONFIG"

// DefaultConfigFile is used when neither --config nor MOCKHOST_CONFIG is set.
const DefaultConfigFile = "mockhost.yaml"

// configPaths returns the configured paths, falling back to the
// environment and then to DefaultConfigFile.
func configPaths(flags []string) []string {
	if len(flags) > 0 {
		return flags
	}
	if env := os.Getenv(ConfigEnvVar); env != "" {
		return []string{env}
	}
	return []string{DefaultConfigFile}
}

// keyValue splits s at the first of the given delimiters.
func keyValue(s string, delimiters ...rune) (key, value string, ok bool) {
	for i, c := range s {
		for _, d := range delimiters {
			if c == d {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

// parseHeaders parses "Name: value" flags.
func parseHeaders(values []string) (http.Header, error) {
	h := http.Header{}
	for _, v := range values {
		key, value, ok := keyValue(v, ':')
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header %q: expected Name: value", v)
		}
		h.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return h, nil
}

// parseQuery parses "key=value" flags.
func parseQuery(values []string) (url.Values, error) {
	q := url.Values{}
	for _, v := range values {
		key, value, ok := keyValue(v, '=')
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q: expected key=value", v)
		}
		q.Add(key, value)
	}
	return q, nil
}
