// Package csp builds Content-Security-Policy header values.
//
// The API mostly serves JSON, so a strict policy covers nearly every route.
// The Swagger UI is the exception: it needs inline scripts, CDN assets, and
// blob: connections, which SwaggerUIPolicy allows on /swagger/ only.
package csp

import (
	"fmt"
	"strings"
)

// CSPBuilder assembles a policy directive by directive.
//
//	policy := NewCSPBuilder().
//	    DefaultSrc("'self'").
//	    ScriptSrc("'self'", "https://cdn.example.com").
//	    Build()
//	// "default-src 'self'; script-src 'self' https://cdn.example.com"
//
// Not safe for concurrent use; build the policy once at startup and share
// the resulting string.
type CSPBuilder struct {
	directives map[string][]string
	reportOnly bool
}

// NewCSPBuilder returns an empty builder in enforcement mode.
func NewCSPBuilder() *CSPBuilder {
	return &CSPBuilder{
		directives: make(map[string][]string),
		reportOnly: false,
	}
}

// DefaultSrc sets default-src, the fallback for fetch directives that are
// not set explicitly.
func (b *CSPBuilder) DefaultSrc(sources ...string) *CSPBuilder {
	b.directives["default-src"] = sources
	return b
}

// ScriptSrc sets script-src. This is the directive that matters most for
// blocking injected scripts.
func (b *CSPBuilder) ScriptSrc(sources ...string) *CSPBuilder {
	b.directives["script-src"] = sources
	return b
}

// StyleSrc sets style-src.
func (b *CSPBuilder) StyleSrc(sources ...string) *CSPBuilder {
	b.directives["style-src"] = sources
	return b
}

// ImgSrc sets img-src.
func (b *CSPBuilder) ImgSrc(sources ...string) *CSPBuilder {
	b.directives["img-src"] = sources
	return b
}

// FontSrc sets font-src.
func (b *CSPBuilder) FontSrc(sources ...string) *CSPBuilder {
	b.directives["font-src"] = sources
	return b
}

// ConnectSrc sets connect-src, which governs fetch, XHR, WebSocket and
// EventSource targets.
func (b *CSPBuilder) ConnectSrc(sources ...string) *CSPBuilder {
	b.directives["connect-src"] = sources
	return b
}

// FrameAncestors sets frame-ancestors. "'none'" blocks all framing and is
// the right choice for this API.
func (b *CSPBuilder) FrameAncestors(sources ...string) *CSPBuilder {
	b.directives["frame-ancestors"] = sources
	return b
}

// FormAction sets form-action.
func (b *CSPBuilder) FormAction(sources ...string) *CSPBuilder {
	b.directives["form-action"] = sources
	return b
}

// BaseUri sets base-uri, keeping attackers from rewriting the base of
// relative URLs.
func (b *CSPBuilder) BaseUri(sources ...string) *CSPBuilder {
	b.directives["base-uri"] = sources
	return b
}

// ObjectSrc sets object-src. "'none'" is recommended.
func (b *CSPBuilder) ObjectSrc(sources ...string) *CSPBuilder {
	b.directives["object-src"] = sources
	return b
}

// ReportUri sets report-uri. Deprecated in CSP Level 3 in favor of
// report-to, but still widely supported.
func (b *CSPBuilder) ReportUri(uri string) *CSPBuilder {
	b.directives["report-uri"] = []string{uri}
	return b
}

// ReportOnly toggles report-only mode, where violations are reported but
// not enforced. Useful for trialing a policy change against the admin
// frontend before turning it on.
func (b *CSPBuilder) ReportOnly(enabled bool) *CSPBuilder {
	b.reportOnly = enabled
	return b
}

// Build renders the policy string. Directives are emitted in a fixed order
// so the header is stable across restarts.
func (b *CSPBuilder) Build() string {
	if len(b.directives) == 0 {
		return ""
	}

	directiveOrder := []string{
		"default-src",
		"script-src",
		"style-src",
		"img-src",
		"font-src",
		"connect-src",
		"frame-ancestors",
		"form-action",
		"base-uri",
		"object-src",
		"report-uri",
	}

	var parts []string
	for _, directive := range directiveOrder {
		if sources, exists := b.directives[directive]; exists && len(sources) > 0 {
			directiveString := fmt.Sprintf("%s %s", directive, strings.Join(sources, " "))
			parts = append(parts, directiveString)
		}
	}

	return strings.Join(parts, "; ")
}

// HeaderName returns the header the policy should be set under:
// Content-Security-Policy-Report-Only in report-only mode,
// Content-Security-Policy otherwise.
func (b *CSPBuilder) HeaderName() string {
	if b.reportOnly {
		return "Content-Security-Policy-Report-Only"
	}
	return "Content-Security-Policy"
}

// SwaggerUIPolicy returns a policy that lets Swagger UI run: inline
// scripts and styles, jsdelivr CDN assets, data: images, and blob:
// connections for spec loading. Everything else stays locked down.
func SwaggerUIPolicy() *CSPBuilder {
	return NewCSPBuilder().
		DefaultSrc("'self'").
		ScriptSrc("'self'", "'unsafe-inline'", "https://cdn.jsdelivr.net").
		StyleSrc("'self'", "'unsafe-inline'", "https://cdn.jsdelivr.net").
		ImgSrc("'self'", "data:", "https:").
		FontSrc("'self'", "data:").
		ConnectSrc("'self'", "blob:").
		FrameAncestors("'none'").
		BaseUri("'self'").
		FormAction("'self'").
		ObjectSrc("'none'")
}

// StrictPolicy returns the policy used for the JSON endpoints. It blocks
// every content type and allows only same-origin connections.
func StrictPolicy() *CSPBuilder {
	return NewCSPBuilder().
		DefaultSrc("'none'").
		ConnectSrc("'self'").
		FrameAncestors("'none'").
		BaseUri("'self'").
		FormAction("'self'")
}

// RelaxedPolicy returns a permissive policy for local development: inline
// scripts, any HTTPS source, data: URIs. Do not use in production.
func RelaxedPolicy() *CSPBuilder {
	return NewCSPBuilder().
		DefaultSrc("'self'").
		ScriptSrc("'self'", "'unsafe-inline'", "'unsafe-eval'", "https:").
		StyleSrc("'self'", "'unsafe-inline'", "https:").
		ImgSrc("'self'", "data:", "https:").
		FontSrc("'self'", "data:", "https:").
		ConnectSrc("'self'", "https:").
		FrameAncestors("'self'").
		BaseUri("'self'").
		FormAction("'self'")
}
