package weburl

import (
	"net"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{
			name:    "valid https URL",
			url:     "https://go.dev/doc/effective_go",
			wantErr: false,
		},
		{
			name:    "http URL rejected",
			url:     "http://example.com",
			wantErr: true,
		},
		{
			name:    "localhost rejected",
			url:     "https://localhost:8080",
			wantErr: true,
		},
		{
			name:    "127.0.0.1 rejected",
			url:     "https://127.0.0.1/path",
			wantErr: true,
		},
		{
			name:    ".local domain rejected",
			url:     "https://myserver.local/api",
			wantErr: true,
		},
		{
			name:    ".internal domain rejected",
			url:     "https://app.internal/api",
			wantErr: true,
		},
		{
			name:    "private IP 192.168.x.x rejected",
			url:     "https://192.168.1.1/path",
			wantErr: true,
		},
		{
			name:    "private IP 10.x.x.x rejected",
			url:     "https://10.0.0.1/path",
			wantErr: true,
		},
		{
			name:    "private IP 172.16.x.x rejected",
			url:     "https://172.16.0.1/path",
			wantErr: true,
		},
		{
			name:    "invalid URL",
			url:     "not-a-url",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		// IPv4 private ranges
		{"192.168.1.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"127.0.0.1", true},
		{"169.254.1.1", true}, // IPv4 link-local

		// IPv4 public
		{"8.8.8.8", false},
		{"1.1.1.1", false},

		// CGNAT
		{"100.64.0.1", true},
		{"100.127.255.255", true},

		// IPv6
		{"::1", true},                // IPv6 loopback
		{"::ffff:192.168.1.1", true}, // IPv6-mapped private IPv4
		{"::ffff:127.0.0.1", true},   // IPv6-mapped loopback
		{"::ffff:8.8.8.8", false},    // IPv6-mapped public IPv4
		{"fe80::1", true},            // IPv6 link-local
		{"fc00::1", true},            // IPv6 unique local
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP: %s", tt.ip)
			}
			got := IsPrivateIP(ip)
			if got != tt.expected {
				t.Errorf("IsPrivateIP(%q) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		url     string
		wantErr bool
	}{
		{"http allowed", Policy{AllowHTTP: true}, "http://example.com/crate/", false},
		{"http still blocks localhost", Policy{AllowHTTP: true}, "http://localhost:8080/", true},
		{"private allowed", Policy{AllowHTTP: true, AllowPrivate: true}, "http://127.0.0.1:8080/crate/", false},
		{"ftp rejected", Policy{AllowHTTP: true, AllowPrivate: true}, "ftp://example.com/", true},
		{"missing host", Policy{AllowPrivate: true}, "https:///path", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestCrateURLs(t *testing.T) {
	tests := []struct {
		url        string
		normalized string
		base       string
		metadata   string
	}{
		{
			url:        "https://example.org/crates/exp/",
			normalized: "https://example.org/crates/exp",
			base:       "https://example.org/crates/exp/",
			metadata:   "https://example.org/crates/exp/ro-crate-metadata.json",
		},
		{
			url:        "https://example.org/crates/exp/ro-crate-metadata.json",
			normalized: "https://example.org/crates/exp",
			base:       "https://example.org/crates/exp/",
			metadata:   "https://example.org/crates/exp/ro-crate-metadata.json",
		},
		{
			url:        "https://example.org/crates/exp",
			normalized: "https://example.org/crates/exp",
			base:       "https://example.org/crates/exp/",
			metadata:   "https://example.org/crates/exp/ro-crate-metadata.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := NormalizeCrateURL(tt.url); got != tt.normalized {
				t.Errorf("NormalizeCrateURL() = %q, want %q", got, tt.normalized)
			}
			if got := BaseURL(tt.url); got != tt.base {
				t.Errorf("BaseURL() = %q, want %q", got, tt.base)
			}
			if got := MetadataURL(tt.url); got != tt.metadata {
				t.Errorf("MetadataURL() = %q, want %q", got, tt.metadata)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"https://example.org/crates/", "exp/", "https://example.org/crates/exp/"},
		{"https://example.org/crates/", "./exp/", "https://example.org/crates/exp/"},
		{"https://example.org/crates/a/", "../b/", "https://example.org/crates/b/"},
		{"https://example.org/crates/", "https://other.org/x/", "https://other.org/x/"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := Resolve(tt.base, tt.ref)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://example.com/path", "example.com"},
		{"https://docs.example.com", "docs.example.com"},
		{"https://example.com:8080/path", "example.com"},
		{"invalid-url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := ExtractDomain(tt.url)
			if got != tt.expected {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}
