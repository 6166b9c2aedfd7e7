package weburl

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// MetadataFileName is the file name of an RO-Crate metadata document.
const MetadataFileName = "ro-crate-metadata.json"

// Pre-compiled CIDR networks for private/reserved IP ranges.
// These are parsed once at package initialization for efficiency.
var (
	cgnat    *net.IPNet // 100.64.0.0/10 - Carrier-grade NAT
	v6unique *net.IPNet // fc00::/7 - IPv6 unique local
	v6link   *net.IPNet // fe80::/10 - IPv6 link-local
)

func init() {
	var err error

	_, cgnat, err = net.ParseCIDR("100.64.0.0/10")
	if err != nil {
		panic("invalid CGNAT CIDR: " + err.Error())
	}

	_, v6unique, err = net.ParseCIDR("fc00::/7")
	if err != nil {
		panic("invalid IPv6 unique local CIDR: " + err.Error())
	}

	_, v6link, err = net.ParseCIDR("fe80::/10")
	if err != nil {
		panic("invalid IPv6 link-local CIDR: " + err.Error())
	}
}

// Policy controls which URLs may be fetched.
type Policy struct {
	// AllowHTTP permits plain http URLs.
	AllowHTTP bool
	// AllowPrivate permits localhost, local domains and private addresses.
	AllowPrivate bool
}

// ValidateURL validates a URL with the strict default policy.
func ValidateURL(rawURL string) error {
	return Policy{}.Validate(rawURL)
}

// Validate checks rawURL for security (SSRF prevention).
func (p Policy) Validate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if !p.AllowHTTP {
			return fmt.Errorf("only HTTPS URLs are allowed")
		}
	default:
		return fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URL has no host")
	}
	if p.AllowPrivate {
		return nil
	}

	// Block localhost variants
	lowHost := strings.ToLower(host)
	if lowHost == "localhost" || lowHost == "127.0.0.1" || lowHost == "::1" {
		return fmt.Errorf("localhost URLs are not allowed")
	}

	// Block local domains
	if strings.HasSuffix(lowHost, ".local") || strings.HasSuffix(lowHost, ".internal") {
		return fmt.Errorf("local domain URLs are not allowed")
	}

	if ip := net.ParseIP(host); ip != nil {
		if IsPrivateIP(ip) {
			return fmt.Errorf("private IP addresses are not allowed")
		}
	}

	return nil
}

// IsPrivateIP checks if an IP is in private/reserved ranges.
// It handles IPv4, IPv6, and IPv6-mapped IPv4 addresses.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	// Convert IPv4-mapped IPv6 addresses (::ffff:x.x.x.x) and re-check
	if v4 := ip.To4(); v4 != nil {
		ip = v4
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			return true
		}
	}

	return cgnat.Contains(ip) || v6unique.Contains(ip) || v6link.Contains(ip)
}

// IsHTTP reports whether s is an http or https URL.
func IsHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsMetadataURL reports whether the URL path names a metadata file,
// including prefixed names such as "abc-ro-crate-metadata.json".
func IsMetadataURL(rawURL string) bool {
	if u, err := url.Parse(rawURL); err == nil {
		rawURL = u.Path
	}
	return strings.HasSuffix(rawURL, MetadataFileName)
}

// NormalizeCrateURL strips a trailing metadata file name and trailing
// slashes, giving a stable id for a remote crate.
func NormalizeCrateURL(rawURL string) string {
	u := strings.TrimRight(rawURL, "/")
	if strings.HasSuffix(u, MetadataFileName) {
		if i := strings.LastIndex(u, "/"); i >= 0 {
			return u[:i]
		}
	}
	return u
}

// BaseURL returns the directory URL against which the entity ids of the
// crate at rawURL resolve. The result always ends with "/".
func BaseURL(rawURL string) string {
	if IsMetadataURL(rawURL) {
		if i := strings.LastIndex(rawURL, "/"); i >= 0 {
			return rawURL[:i+1]
		}
	}
	return strings.TrimRight(rawURL, "/") + "/"
}

// MetadataURL returns the metadata file URL for a crate directory URL.
// A URL that already names a metadata file is returned unchanged.
func MetadataURL(rawURL string) string {
	if IsMetadataURL(rawURL) {
		return rawURL
	}
	return strings.TrimRight(rawURL, "/") + "/" + MetadataFileName
}

// Resolve resolves ref against base.
func Resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference: %w", err)
	}
	return b.ResolveReference(r).String(), nil
}

// ExtractDomain extracts the domain name from a URL.
// Returns an empty string if the URL is invalid.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
