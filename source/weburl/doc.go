// Package weburl provides URL validation and URL arithmetic for remote crates.
//
// # Overview
//
// This package implements security validation for crate URLs to prevent SSRF
// (Server-Side Request Forgery) attacks when a crate hierarchy points at
// remote subcrates, and the URL helpers used to locate metadata files.
//
// # URL Validation
//
// Policy.Validate checks URLs against multiple security criteria:
//
//   - Requires HTTPS scheme unless AllowHTTP is set
//   - Blocks localhost variants (localhost, 127.0.0.1, ::1)
//   - Blocks local domains (.local, .internal)
//   - Blocks private IP ranges (RFC 1918, CGNAT, link-local)
//
// AllowPrivate lifts the host checks. It exists for local test servers.
//
// # IP Address Handling
//
// The IsPrivateIP function detects private/reserved IP addresses including:
//
//   - IPv4 private ranges (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
//   - IPv4 loopback (127.0.0.0/8)
//   - IPv4 link-local (169.254.0.0/16)
//   - CGNAT range (100.64.0.0/10)
//   - IPv6 loopback (::1)
//   - IPv6 unique local (fc00::/7)
//   - IPv6 link-local (fe80::/10)
//   - IPv6-mapped IPv4 addresses (::ffff:x.x.x.x)
//
// # Crate URLs
//
// A crate published on the web is addressed either by its directory URL or
// by the URL of its metadata file:
//
//	https://example.org/crates/exp/
//	https://example.org/crates/exp/ro-crate-metadata.json
//
// NormalizeCrateURL maps both to https://example.org/crates/exp, which is
// used as the crate id. BaseURL returns the directory URL that relative
// entity ids resolve against.
package weburl
