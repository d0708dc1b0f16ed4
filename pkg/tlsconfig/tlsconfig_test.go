package tlsconfig

import "testing"

func TestNewControlChannelConfigDefaultsToSecureProfile(t *testing.T) {
	cfg := NewControlChannelConfig(ControlChannelOptions{})
	if cfg.MinVersion != VersionTLS12 || cfg.MaxVersion != VersionTLS13 {
		t.Fatalf("got min=%x max=%x, want TLS 1.2-1.3", cfg.MinVersion, cfg.MaxVersion)
	}
	if len(cfg.CipherSuites) == 0 {
		t.Fatal("expected TLS 1.2 cipher suites to be set")
	}
}

func TestNewControlChannelConfigModernProfile(t *testing.T) {
	cfg := NewControlChannelConfig(ControlChannelOptions{Profile: ProfileModern})
	if cfg.MinVersion != VersionTLS13 || cfg.MaxVersion != VersionTLS13 {
		t.Fatalf("got min=%x max=%x, want TLS 1.3 only", cfg.MinVersion, cfg.MaxVersion)
	}
	if cfg.CipherSuites != nil {
		t.Fatalf("TLS 1.3 negotiates its own suites, want nil, got %v", cfg.CipherSuites)
	}
}

func TestNewControlChannelConfigCarriesServerNameAndSkipVerify(t *testing.T) {
	cfg := NewControlChannelConfig(ControlChannelOptions{
		ServerName:         "proxy.example.com",
		InsecureSkipVerify: true,
	})
	if cfg.ServerName != "proxy.example.com" {
		t.Fatalf("got ServerName %q", cfg.ServerName)
	}
	if !cfg.InsecureSkipVerify {
		t.Fatal("expected InsecureSkipVerify to be carried through")
	}
}

func TestNewControlChannelConfigCompatibleProfile(t *testing.T) {
	cfg := NewControlChannelConfig(ControlChannelOptions{Profile: ProfileCompatible})
	if cfg.MinVersion != VersionTLS10 || cfg.MaxVersion != VersionTLS13 {
		t.Fatalf("got min=%x max=%x, want TLS 1.0-1.3", cfg.MinVersion, cfg.MaxVersion)
	}
	if len(cfg.CipherSuites) != len(CipherSuitesTLS12Compatible) {
		t.Fatalf("got %d cipher suites, want CipherSuitesTLS12Compatible's %d", len(cfg.CipherSuites), len(CipherSuitesTLS12Compatible))
	}
}

func TestNewControlChannelConfigLegacyProfile(t *testing.T) {
	cfg := NewControlChannelConfig(ControlChannelOptions{Profile: ProfileLegacy})
	if cfg.MinVersion != VersionSSL30 || cfg.MaxVersion != VersionTLS13 {
		t.Fatalf("got min=%x max=%x, want SSL 3.0-TLS 1.3", cfg.MinVersion, cfg.MaxVersion)
	}
	if len(cfg.CipherSuites) != len(CipherSuitesLegacy) {
		t.Fatalf("got %d cipher suites, want CipherSuitesLegacy's %d", len(cfg.CipherSuites), len(CipherSuitesLegacy))
	}
}

func TestCipherSuitesTLS13EntriesHaveNames(t *testing.T) {
	// ApplyCipherSuites leaves CipherSuites nil for TLS 1.3 (the stdlib
	// negotiates among CipherSuitesTLS13 automatically), so the table's
	// only direct exerciser is GetCipherSuiteName below.
	for _, suite := range CipherSuitesTLS13 {
		if GetCipherSuiteName(suite) == "Unknown" {
			t.Fatalf("CipherSuitesTLS13 entry %#x has no GetCipherSuiteName mapping", suite)
		}
	}
}

func TestGetCipherSuiteName(t *testing.T) {
	if name := GetCipherSuiteName(CipherSuitesTLS12Secure[0]); name == "Unknown" {
		t.Fatalf("expected a known name for %#x", CipherSuitesTLS12Secure[0])
	}
	if name := GetCipherSuiteName(0xffff); name != "Unknown" {
		t.Fatalf("got %q for an unassigned cipher suite, want Unknown", name)
	}
}

func TestGetVersionNameAndDeprecation(t *testing.T) {
	if GetVersionName(VersionTLS13) != "TLS 1.3" {
		t.Fatalf("got %q", GetVersionName(VersionTLS13))
	}
	if !IsVersionDeprecated(VersionTLS11) {
		t.Fatal("TLS 1.1 should be deprecated")
	}
	if IsVersionDeprecated(VersionTLS12) {
		t.Fatal("TLS 1.2 should not be deprecated")
	}
}
