package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/outpost-proxy/dpicore/pkg/constants"
	"github.com/outpost-proxy/dpicore/pkg/socks5s"
	"github.com/outpost-proxy/dpicore/pkg/tlsconfig"
)

// PeerConfig is the upstream SOCKS5s peer a dialer connects through
// (spec §4.5). Only the "socks5s://" scheme is accepted — the control
// channel is always TLS-wrapped, unlike the teacher's multi-scheme
// proxy URL.
type PeerConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	NegotiationTimeout time.Duration `yaml:"negotiation_timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`

	// TLSProfile selects the allowed version/cipher-suite range for the
	// control channel handshake (pkg/tlsconfig's VersionProfile table):
	// one of "modern", "secure", "compatible", "legacy". Empty means
	// tlsconfig.ProfileSecure.
	TLSProfile string `yaml:"tls_profile"`

	// CACertFile, when set, replaces the system trust store with a PEM
	// bundle from this path when verifying the peer's certificate.
	CACertFile string `yaml:"ca_cert_file"`

	// ClientCertFile and ClientKeyFile, when both set, are presented for
	// mTLS to peers that request client authentication.
	ClientCertFile string `yaml:"client_cert_file"`
	ClientKeyFile  string `yaml:"client_key_file"`
}

// tlsProfiles maps the tls_profile config string to pkg/tlsconfig's
// named VersionProfile values.
var tlsProfiles = map[string]tlsconfig.VersionProfile{
	"":           tlsconfig.ProfileSecure,
	"modern":     tlsconfig.ProfileModern,
	"secure":     tlsconfig.ProfileSecure,
	"compatible": tlsconfig.ProfileCompatible,
	"legacy":     tlsconfig.ProfileLegacy,
}

// tlsOptions resolves PeerConfig's TLS-related fields into the
// tlsconfig.ControlChannelOptions the control channel handshake uses,
// loading any CA bundle or client certificate from disk.
func (p PeerConfig) tlsOptions() (tlsconfig.ControlChannelOptions, error) {
	profile, ok := tlsProfiles[p.TLSProfile]
	if !ok {
		return tlsconfig.ControlChannelOptions{}, fmt.Errorf("config: unknown tls_profile %q", p.TLSProfile)
	}

	opts := tlsconfig.ControlChannelOptions{
		ServerName:         p.Host,
		Profile:            profile,
		InsecureSkipVerify: p.InsecureSkipVerify,
	}

	if p.CACertFile != "" {
		pem, err := os.ReadFile(p.CACertFile)
		if err != nil {
			return tlsconfig.ControlChannelOptions{}, fmt.Errorf("config: read ca_cert_file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return tlsconfig.ControlChannelOptions{}, fmt.Errorf("config: ca_cert_file %s contained no usable certificates", p.CACertFile)
		}
		opts.RootCAs = pool
	}

	if p.ClientCertFile != "" || p.ClientKeyFile != "" {
		if p.ClientCertFile == "" || p.ClientKeyFile == "" {
			return tlsconfig.ControlChannelOptions{}, fmt.Errorf("config: client_cert_file and client_key_file must both be set")
		}
		cert, err := tls.LoadX509KeyPair(p.ClientCertFile, p.ClientKeyFile)
		if err != nil {
			return tlsconfig.ControlChannelOptions{}, fmt.Errorf("config: load client certificate: %w", err)
		}
		opts.ClientCertificate = &cert
	}

	return opts, nil
}

// ParseSOCKS5sPeerURL parses a "socks5s://[user[:pass]@]host[:port]" URL
// into a PeerConfig, the SOCKS5s analogue of the teacher's
// ParseProxyURL (pkg/client/proxy_parser.go) trimmed to the one scheme
// this system dials through.
func ParseSOCKS5sPeerURL(raw string) (PeerConfig, error) {
	if raw == "" {
		return PeerConfig{}, fmt.Errorf("config: peer URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return PeerConfig{}, fmt.Errorf("config: invalid peer URL: %w", err)
	}
	if u.Scheme != "socks5s" {
		return PeerConfig{}, fmt.Errorf("config: unsupported peer scheme %q (must be socks5s)", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return PeerConfig{}, fmt.Errorf("config: peer URL must include host")
	}

	port := 1080
	if portStr := u.Port(); portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return PeerConfig{}, fmt.Errorf("config: invalid peer port %q: %w", portStr, err)
		}
		if port < 1 || port > 65535 {
			return PeerConfig{}, fmt.Errorf("config: peer port must be between 1 and 65535, got %d", port)
		}
	}

	var username, password string
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}

	return PeerConfig{
		Host:               host,
		Port:               port,
		Username:           username,
		Password:           password,
		NegotiationTimeout: constants.DefaultPeerNegotiationTimeout,
	}, nil
}

// Dialer builds a socks5s.Dialer from the peer configuration, wiring its
// TLS client config through pkg/tlsconfig.
func (p PeerConfig) Dialer() (*socks5s.Dialer, error) {
	timeout := p.NegotiationTimeout
	if timeout <= 0 {
		timeout = constants.DefaultPeerNegotiationTimeout
	}
	opts, err := p.tlsOptions()
	if err != nil {
		return nil, err
	}
	return &socks5s.Dialer{
		ProxyAddr:          fmt.Sprintf("%s:%d", p.Host, p.Port),
		TLSConfig:          tlsconfig.NewControlChannelConfig(opts),
		Username:           p.Username,
		Password:           p.Password,
		NegotiationTimeout: timeout,
	}, nil
}
