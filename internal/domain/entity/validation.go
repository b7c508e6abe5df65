package entity

import (
	"fmt"
	"net"
	"net/url"
)

// maxURLLength caps listing URL length so oversized input cannot be used for DoS.
const maxURLLength = 2048

// privateNets holds the IPv4 ranges that listing URLs must never resolve to:
// RFC1918 private networks plus 169.254.0.0/16, which covers link-local and
// cloud metadata endpoints.
var privateNets = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, subnet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets = append(nets, subnet)
	}
	return nets
}()

// ValidateURL checks that a URL is well-formed, uses http or https, carries a
// host and no userinfo, and does not resolve to a private address. A URL that
// fails any check yields a ValidationError; unparseable input yields the
// wrapped parse error.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}
	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}
	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	// Credentials embedded in listing URLs are always a configuration mistake.
	if parsedURL.User != nil {
		return &ValidationError{Field: "url", Message: "URL must not contain userinfo"}
	}

	// SSRF対策: プライベートアドレスに解決される URL は登録させない。
	// 解決に失敗した場合はフェッチャー側の再検証に委ねる。
	ips, err := net.LookupIP(parsedURL.Hostname())
	if err == nil {
		for _, ip := range ips {
			if isPrivateIP(ip) {
				return &ValidationError{
					Field:   "url",
					Message: "url cannot point to private network",
				}
			}
		}
	}

	return nil
}

// isPrivateIP reports whether ip is loopback, link-local, or inside one of
// the blocked IPv4 ranges.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return true
	}
	for _, subnet := range privateNets {
		if subnet.Contains(ip) {
			return true
		}
	}
	return false
}
