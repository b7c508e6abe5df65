// Package fetcher provides the crawler's HTTP client and content helpers:
// browser-profile page fetching, PDF detection and text extraction, and the
// chunked text splitter.
package fetcher

import (
	"fmt"
	"net"
	"net/url"

	"rfp-radar/internal/usecase/discovery"
)

// validateURL validates a URL for security before making an HTTP request.
// This function prevents Server-Side Request Forgery (SSRF) attacks by:
//   - Checking URL scheme (only http/https allowed)
//   - Rejecting embedded credentials (user:pass@host)
//   - Resolving DNS to check for private IP addresses
//   - Blocking access to loopback, private, and link-local addresses
//
// Parameters:
//   - urlStr: The URL string to validate
//   - denyPrivateIPs: If true, block access to private IP addresses
//
// Blocked IP ranges (when denyPrivateIPs is true):
//   - 127.0.0.0/8 (loopback)
//   - 10.0.0.0/8 (private)
//   - 172.16.0.0/12 (private)
//   - 192.168.0.0/16 (private)
//   - 169.254.0.0/16 (link-local)
//   - ::1 (IPv6 loopback)
//   - fc00::/7 (IPv6 private)
//   - fe80::/10 (IPv6 link-local)
func validateURL(urlStr string, denyPrivateIPs bool) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%w: parse error: %v", discovery.ErrInvalidURL, err)
	}

	// Validate scheme (only http and https allowed)
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme '%s' not allowed (only http/https)", discovery.ErrInvalidURL, u.Scheme)
	}

	// Embedded credentials are never legitimate on agency sites
	if u.User != nil {
		return fmt.Errorf("%w: userinfo not allowed", discovery.ErrInvalidURL)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("%w: empty hostname", discovery.ErrInvalidURL)
	}

	if !denyPrivateIPs {
		return nil
	}

	// DNS resolution to check for private IPs. This prevents SSRF where a
	// configured listing URL or an in-page link points into the internal network.
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %v", discovery.ErrInvalidURL, hostname, err)
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: hostname '%s' resolves to private IP %s", discovery.ErrPrivateIP, hostname, ip.String())
		}
	}

	return nil
}

// isPrivateIP checks if an IP address is in a private or loopback range.
// Supports both IPv4 and IPv6 addresses.
//
// Reference:
//   - https://tools.ietf.org/html/rfc1918 (Private IPv4)
//   - https://tools.ietf.org/html/rfc4193 (Private IPv6)
//   - https://tools.ietf.org/html/rfc3927 (Link-local IPv4)
//   - https://tools.ietf.org/html/rfc4291 (Link-local IPv6)
func isPrivateIP(ip net.IP) bool {
	// IPv4: 127.0.0.0/8, IPv6: ::1
	if ip.IsLoopback() {
		return true
	}

	// IPv4: 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16; IPv6: fc00::/7
	if ip.IsPrivate() {
		return true
	}

	// IPv4: 169.254.0.0/16, IPv6: fe80::/10
	if ip.IsLinkLocalUnicast() {
		return true
	}

	return false
}
