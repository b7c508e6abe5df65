package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strings"
)

// IPExtractor decides which address identifies a client for rate limiting.
// RemoteAddrExtractor trusts only the TCP peer; TrustedProxyExtractor honors
// forwarding headers, but only from proxies on an allow list.
type IPExtractor interface {
	ExtractIP(r *http.Request) (string, error)
}

// RemoteAddrExtractor reads the client IP from the connection's RemoteAddr.
// The socket peer cannot be spoofed by request headers, so this is the
// default when the server is reached directly rather than through a proxy.
type RemoteAddrExtractor struct{}

// ExtractIP strips the port from r.RemoteAddr and returns the bare IP.
// IPv6 addresses in "[::1]:8080" form are handled.
func (e *RemoteAddrExtractor) ExtractIP(r *http.Request) (string, error) {
	return extractIPFromAddr(r.RemoteAddr)
}

// TrustedProxyConfig lists the reverse proxies whose X-Forwarded-For and
// X-Real-IP headers may be believed.
type TrustedProxyConfig struct {
	// Enabled gates all header-based extraction. When false, headers are
	// ignored everywhere.
	Enabled bool

	// AllowedCIDRs are the trusted proxy ranges. Single IPs are stored as
	// /32 or /128 prefixes.
	AllowedCIDRs []netip.Prefix
}

// IsTrusted reports whether remoteAddr (in "IP:port" form) falls inside any
// trusted range. Parse failures count as untrusted.
func (c *TrustedProxyConfig) IsTrusted(remoteAddr string) bool {
	ip, err := extractIPFromAddr(remoteAddr)
	if err != nil {
		return false
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	for _, prefix := range c.AllowedCIDRs {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// LoadTrustedProxyConfig reads the proxy allow list from the environment:
// RATE_LIMIT_TRUST_PROXY=true enables header trust, and
// RATE_LIMIT_TRUSTED_PROXIES carries a comma-separated list of IPs or CIDR
// ranges (e.g. "10.0.0.0/8,172.16.0.0/12"). Enabling trust with an empty or
// invalid list is a startup error; this fails closed rather than silently
// trusting nothing or everything.
func LoadTrustedProxyConfig() (*TrustedProxyConfig, error) {
	enabled := os.Getenv("RATE_LIMIT_TRUST_PROXY") == "true"

	config := &TrustedProxyConfig{
		Enabled:      enabled,
		AllowedCIDRs: []netip.Prefix{},
	}

	if !enabled {
		return config, nil
	}

	proxiesStr := strings.TrimSpace(os.Getenv("RATE_LIMIT_TRUSTED_PROXIES"))
	if proxiesStr == "" {
		return nil, fmt.Errorf("RATE_LIMIT_TRUST_PROXY is enabled but RATE_LIMIT_TRUSTED_PROXIES is empty")
	}

	for _, proxyStr := range strings.Split(proxiesStr, ",") {
		proxyStr = strings.TrimSpace(proxyStr)
		if proxyStr == "" {
			continue
		}

		prefix, err := netip.ParsePrefix(proxyStr)
		if err != nil {
			// Not CIDR notation; accept a bare IP as a host prefix.
			ip, ipErr := netip.ParseAddr(proxyStr)
			if ipErr != nil {
				return nil, fmt.Errorf("invalid IP or CIDR format '%s': must be valid IP address or CIDR notation (e.g., '192.168.1.1' or '10.0.0.0/8')", proxyStr)
			}
			if ip.Is4() {
				prefix = netip.PrefixFrom(ip, 32)
			} else {
				prefix = netip.PrefixFrom(ip, 128)
			}
		}

		config.AllowedCIDRs = append(config.AllowedCIDRs, prefix)
	}

	if len(config.AllowedCIDRs) == 0 {
		return nil, fmt.Errorf("RATE_LIMIT_TRUST_PROXY is enabled but no valid proxies found in RATE_LIMIT_TRUSTED_PROXIES")
	}

	return config, nil
}

// TrustedProxyExtractor reads the client IP from X-Forwarded-For (first
// entry) or X-Real-IP, but only when the direct peer is a trusted proxy.
// Untrusted peers get RemoteAddr regardless of what headers they send, which
// blocks the limit-bypass trick of rotating a spoofed X-Forwarded-For.
type TrustedProxyExtractor struct {
	config TrustedProxyConfig
}

// NewTrustedProxyExtractor creates an extractor with the given proxy config.
func NewTrustedProxyExtractor(config TrustedProxyConfig) *TrustedProxyExtractor {
	return &TrustedProxyExtractor{config: config}
}

// ExtractIP resolves the client IP. Header order for trusted proxies is
// X-Forwarded-For, then X-Real-IP, then RemoteAddr. A forwarding header from
// an untrusted peer is logged as a spoofing attempt.
func (e *TrustedProxyExtractor) ExtractIP(r *http.Request) (string, error) {
	if !e.config.Enabled {
		return extractIPFromAddr(r.RemoteAddr)
	}

	if !e.config.IsTrusted(r.RemoteAddr) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			slog.Warn("untrusted proxy attempting to set X-Forwarded-For",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("x_forwarded_for", xff),
			)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			slog.Warn("untrusted proxy attempting to set X-Real-IP",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("x_real_ip", xri),
			)
		}
		return extractIPFromAddr(r.RemoteAddr)
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip, nil
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String(), nil
		}
	}

	return extractIPFromAddr(r.RemoteAddr)
}

// extractIPFromAddr returns the IP part of a "host:port" string. Addresses
// without a port ("127.0.0.1", "[::1]") are accepted too.
func extractIPFromAddr(addr string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		if ip := net.ParseIP(addr); ip != nil {
			return ip.String(), nil
		}
		return "", fmt.Errorf("invalid address format: %s", addr)
	}
	return host, nil
}

// parseFirstIP returns the first IP from an X-Forwarded-For style list
// ("client, proxy1, proxy2"). An unparseable first entry yields "".
func parseFirstIP(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			ip := net.ParseIP(s[:i])
			if ip != nil {
				return ip.String()
			}
			return ""
		}
	}

	if ip := net.ParseIP(s); ip != nil {
		return ip.String()
	}
	return ""
}
