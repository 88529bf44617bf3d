// Package registry manages the set of named external tool-server
// configurations: validation, enable/disable state, and durable persistence.
package registry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Transport identifies how a tool server is reached.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
	TransportHTTP  Transport = "http"
)

// ParseTransport parses a transport string (case-insensitive).
func ParseTransport(s string) (Transport, error) {
	switch t := Transport(strings.ToLower(strings.TrimSpace(s))); t {
	case TransportStdio, TransportSSE, TransportHTTP:
		return t, nil
	}
	return "", fmt.Errorf("invalid transport %q: must be stdio, sse or http", s)
}

// ServerConfig is one external tool-server entry. Name is the unique,
// case-sensitive key and is immutable once created; a rename is a remove
// plus an add. For stdio servers Command and Args are populated and URL is
// ignored; for sse/http servers URL is populated and Command/Args are
// ignored.
type ServerConfig struct {
	Name      string            `json:"name"`
	Transport Transport         `json:"transport"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	URL       string            `json:"url,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Enabled   bool              `json:"enabled"`
}

// Target returns a display string for the server's command or URL.
func (c ServerConfig) Target() string {
	if c.Transport == TransportStdio {
		if len(c.Args) == 0 {
			return c.Command
		}
		return c.Command + " " + strings.Join(c.Args, " ")
	}
	return c.URL
}

// Validate checks transport/target field consistency.
func (c ServerConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &InvalidConfigError{Reason: "name is required"}
	}
	if strings.ContainsAny(c.Name, " \t") {
		return &InvalidConfigError{Reason: "name must not contain whitespace"}
	}

	switch c.Transport {
	case TransportStdio:
		if strings.TrimSpace(c.Command) == "" {
			return &InvalidConfigError{Reason: "stdio transport requires a command"}
		}
	case TransportSSE, TransportHTTP:
		if strings.TrimSpace(c.URL) == "" {
			return &InvalidConfigError{Reason: fmt.Sprintf("%s transport requires a url", c.Transport)}
		}
		u, err := url.Parse(c.URL)
		if err != nil {
			return &InvalidConfigError{Reason: fmt.Sprintf("malformed url: %v", err)}
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &InvalidConfigError{Reason: fmt.Sprintf("url must be http(s) with a host: %s", c.URL)}
		}
	default:
		return &InvalidConfigError{Reason: fmt.Sprintf("unknown transport: %s", c.Transport)}
	}

	return nil
}

// TestResult reports the outcome of a lightweight handshake to one server.
type TestResult struct {
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Sentinel errors for registry lookups.
var (
	ErrNotFound      = errors.New("server not found")
	ErrDuplicateName = errors.New("server already exists")
)

// InvalidConfigError reports inconsistent transport/target fields.
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return "invalid server config: " + e.Reason
}
