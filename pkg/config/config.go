// Package config loads and holds the daemon's static configuration: the
// per-component tuning knobs spec.md §6 treats as external collaborators
// (configuration loading is out of scope for the core itself) plus the
// ambient logging/listener settings a running daemon needs.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/outpost-proxy/dpicore/pkg/constants"
	"github.com/outpost-proxy/dpicore/pkg/ioext"
)

// Config is the daemon's top-level configuration, the union of every
// per-component config a listener needs to start.
type Config struct {
	Listen  ListenConfig     `yaml:"listen"`
	Inspect InspectConfig    `yaml:"inspect"`
	Peer    PeerConfig       `yaml:"peer"`
	Logging LogConfig        `yaml:"logging"`
	Limits  ioext.SpeedLimit `yaml:"limits"`
}

// ListenConfig is where the daemon accepts client connections.
type ListenConfig struct {
	Address string `yaml:"address"`
}

// InspectConfig carries the protocol-inspection tuning knobs spec.md §6
// documents as defaults.
type InspectConfig struct {
	MaxDepth          int           `yaml:"max_depth"`
	Data0BufferSize   int           `yaml:"data0_buffer_size"`
	Data0WaitTimeout  time.Duration `yaml:"data0_wait_timeout"`
	Data0ReadTimeout  time.Duration `yaml:"data0_read_timeout"`
	MaxClientHelloLen int           `yaml:"max_client_hello_size"`

	// DestinationPort is the port dpiproxyd connects to on the sniffed
	// SNI host. Recovering the real original destination (e.g. via
	// SO_ORIGINAL_DST) is platform-specific packet-filter plumbing with
	// no counterpart anywhere in the retrieval pack, so the daemon takes
	// a single configured port instead (443 by default, matching the
	// TLS ClientHello it sniffs to find the host).
	DestinationPort int `yaml:"destination_port"`
}

// Default returns the daemon's default configuration: a loopback
// listener, spec.md §6's documented inspection defaults, no SOCKS5s
// peer configured (must be set explicitly), and info-level logging to
// stderr.
func Default() Config {
	return Config{
		Listen: ListenConfig{
			Address: "127.0.0.1:9050",
		},
		Inspect: InspectConfig{
			MaxDepth:          constants.DefaultInspectMaxDepth,
			Data0BufferSize:   constants.DefaultData0BufferSize,
			Data0WaitTimeout:  constants.DefaultData0WaitTimeout,
			Data0ReadTimeout:  constants.DefaultData0ReadTimeout,
			MaxClientHelloLen: constants.DefaultMaxClientHelloSize,
			DestinationPort:   443,
		},
		Logging: DefaultLogConfig(),
	}
}

// Load reads and parses a YAML configuration file, starting from
// Default() so any field the file omits keeps its default value.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads YAML configuration from r, starting from Default().
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	buf, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("config: read: %w", err)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}
