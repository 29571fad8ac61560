// Package config loads the proxy configuration and derives the upstream identity from a stream URL.
package config

import (
	"bytes"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultPort = "1935"
const DefaultListen = ":" + DefaultPort
const DefaultDialTimeout = 10 * time.Second
const DefaultResolverWorkers = 1

// BuffioSize is the size of the buffered reader/writer wrapped around each socket.
const BuffioSize = 1024 * 64

// Config is immutable once loaded and shared by every connection.
type Config struct {
	Debug  bool
	Listen string
	// ServerAddr is the host:port of the real RTMP server.
	ServerAddr string
	// PlayURL replaces the client's tcUrl and swfUrl.
	PlayURL string
	// AppName replaces the client's app.
	AppName string
	// StreamName replaces the stream name in releaseStream, FCPublish and publish.
	StreamName      string
	ResolverWorkers int
	DialTimeout     time.Duration
}

type file struct {
	Stream          string `yaml:"stream"`
	Listen          string `yaml:"listen"`
	Debug           bool   `yaml:"debug"`
	ResolverWorkers int    `yaml:"resolver_workers"`
	DialTimeout     string `yaml:"dial_timeout"`
}

// Error reports a missing or invalid configuration value.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Cause() error { return e.Err }

// Load reads the YAML file at path. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Err: errors.Wrap(err, "read config file")}
	}

	var f file
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, &Error{Err: errors.Wrap(err, "decode config file")}
	}

	if f.Stream == "" {
		return nil, &Error{Field: "stream", Err: errors.New("stream url undefined")}
	}
	cfg, err := FromStreamURL(f.Stream)
	if err != nil {
		return nil, err
	}
	cfg.Debug = f.Debug
	if f.Listen != "" {
		cfg.Listen = f.Listen
	}
	if f.ResolverWorkers != 0 {
		cfg.ResolverWorkers = f.ResolverWorkers
	}
	if f.DialTimeout != "" {
		d, err := time.ParseDuration(f.DialTimeout)
		if err != nil {
			return nil, &Error{Field: "dial_timeout", Err: err}
		}
		cfg.DialTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromStreamURL derives a configuration from a publish URL of the form
// rtmp://host[:port]/app[/]?query. Everything other than the stream fields gets its default.
func FromStreamURL(streamURL string) (*Config, error) {
	u, err := url.Parse(streamURL)
	if err != nil {
		return nil, &Error{Field: "stream", Err: err}
	}
	if u.Scheme != "rtmp" {
		return nil, &Error{Field: "stream", Err: errors.Errorf("unsupported scheme %q", u.Scheme)}
	}
	host := u.Hostname()
	if host == "" {
		return nil, &Error{Field: "stream", Err: errors.New("missing host")}
	}
	port := u.Port()
	if port == "" {
		port = DefaultPort
	}
	appName := strings.Trim(u.Path, "/")
	if appName == "" {
		return nil, &Error{Field: "stream", Err: errors.New("missing app name in path")}
	}

	streamName := ""
	if u.RawQuery != "" {
		streamName = "?" + u.RawQuery
	}

	return &Config{
		Listen:          DefaultListen,
		ServerAddr:      net.JoinHostPort(host, port),
		PlayURL:         fmt.Sprintf("rtmp://%s/%s", u.Host, appName),
		AppName:         appName,
		StreamName:      streamName,
		ResolverWorkers: DefaultResolverWorkers,
		DialTimeout:     DefaultDialTimeout,
	}, nil
}

// Validate returns an *Error describing the first invalid value.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return &Error{Field: "listen", Err: errors.New("must not be empty")}
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return &Error{Field: "listen", Err: err}
	}
	if c.ServerAddr == "" {
		return &Error{Field: "stream", Err: errors.New("missing server address")}
	}
	if c.ResolverWorkers < 1 {
		return &Error{Field: "resolver_workers", Err: errors.Errorf("must be at least 1, got %d", c.ResolverWorkers)}
	}
	if c.DialTimeout <= 0 {
		return &Error{Field: "dial_timeout", Err: errors.Errorf("must be positive, got %s", c.DialTimeout)}
	}
	return nil
}
