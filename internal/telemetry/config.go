package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	envEndpoint    = "THEMESYNC_OTEL_ENDPOINT"
	envInsecure    = "THEMESYNC_OTEL_INSECURE"
	envService     = "THEMESYNC_OTEL_SERVICE"
	envDialTimeout = "THEMESYNC_OTEL_DIAL_TIMEOUT"
	envHeaders     = "THEMESYNC_OTEL_HEADERS"

	defaultServiceName = "themesync"
)

type Config struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Version     string
	DialTimeout time.Duration
	Headers     map[string]string
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// ConfigFromEnv reads the OTLP settings through getenv so tests can inject
// their own lookup.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := Config{
		Endpoint:    strings.TrimSpace(getenv(envEndpoint)),
		ServiceName: strings.TrimSpace(getenv(envService)),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(getenv(envInsecure))); err == nil {
		cfg.Insecure = v
	}
	if v, err := time.ParseDuration(strings.TrimSpace(getenv(envDialTimeout))); err == nil {
		cfg.DialTimeout = v
	}
	if headers, err := ParseHeaders(getenv(envHeaders)); err == nil {
		cfg.Headers = headers
	}
	return cfg
}

// ParseHeaders parses "k=v, k2=v2". A blank input yields nil.
func ParseHeaders(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("header %q: missing '='", part)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("header %q: empty name", part)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}
