package csp

import (
	"strings"
	"testing"
)

// mustContainAll fails for every directive missing from the policy string.
func mustContainAll(t *testing.T, policy string, directives []string) {
	t.Helper()
	for _, directive := range directives {
		if !strings.Contains(policy, directive) {
			t.Errorf("directive %q not found in policy %q", directive, policy)
		}
	}
}

func TestCSPBuilder_Build(t *testing.T) {
	t.Run("single directive", func(t *testing.T) {
		policy := NewCSPBuilder().DefaultSrc("'self'").Build()
		if expected := "default-src 'self'"; policy != expected {
			t.Errorf("expected %q, got %q", expected, policy)
		}
	})

	t.Run("empty builder yields empty string", func(t *testing.T) {
		if policy := NewCSPBuilder().Build(); policy != "" {
			t.Errorf("expected empty string, got %q", policy)
		}
	})

	t.Run("all directives rendered", func(t *testing.T) {
		policy := NewCSPBuilder().
			DefaultSrc("'self'").
			ScriptSrc("'self'", "'unsafe-inline'").
			StyleSrc("'self'", "'unsafe-inline'").
			ImgSrc("'self'", "data:").
			FontSrc("'self'", "data:").
			ConnectSrc("'self'").
			FrameAncestors("'none'").
			FormAction("'self'").
			BaseUri("'self'").
			ObjectSrc("'none'").
			ReportUri("/csp-report").
			Build()

		mustContainAll(t, policy, []string{
			"default-src 'self'",
			"script-src 'self' 'unsafe-inline'",
			"style-src 'self' 'unsafe-inline'",
			"img-src 'self' data:",
			"font-src 'self' data:",
			"connect-src 'self'",
			"frame-ancestors 'none'",
			"form-action 'self'",
			"base-uri 'self'",
			"object-src 'none'",
			"report-uri /csp-report",
		})
	})

	t.Run("multiple sources joined by spaces", func(t *testing.T) {
		policy := NewCSPBuilder().
			ScriptSrc("'self'", "https://cdn1.example.com", "https://cdn2.example.com", "'unsafe-inline'").
			Build()

		expected := "script-src 'self' https://cdn1.example.com https://cdn2.example.com 'unsafe-inline'"
		if policy != expected {
			t.Errorf("expected %q, got %q", expected, policy)
		}
	})

	t.Run("setting a directive twice overwrites", func(t *testing.T) {
		policy := NewCSPBuilder().
			DefaultSrc("'self'").
			DefaultSrc("'none'").
			Build()

		if expected := "default-src 'none'"; policy != expected {
			t.Errorf("expected %q, got %q", expected, policy)
		}
	})

	t.Run("empty sources omit the directive", func(t *testing.T) {
		policy := NewCSPBuilder().
			DefaultSrc().
			ScriptSrc("'self'").
			Build()

		if strings.Contains(policy, "default-src") {
			t.Error("default-src with empty sources should not be included")
		}
		if !strings.Contains(policy, "script-src 'self'") {
			t.Error("script-src should be present")
		}
	})

	t.Run("output order is fixed regardless of call order", func(t *testing.T) {
		// 逆順でセットしてもヘッダーは再起動をまたいで安定する
		policy := NewCSPBuilder().
			ObjectSrc("'none'").
			BaseUri("'self'").
			ConnectSrc("'self'").
			ScriptSrc("'self'").
			DefaultSrc("'self'").
			Build()

		defaultIndex := strings.Index(policy, "default-src")
		scriptIndex := strings.Index(policy, "script-src")
		if defaultIndex < 0 || scriptIndex < 0 {
			t.Fatal("missing directives in policy")
		}
		if defaultIndex > scriptIndex {
			t.Error("default-src should come before script-src")
		}
	})
}

func TestCSPBuilder_HeaderName(t *testing.T) {
	tests := []struct {
		name       string
		reportOnly bool
		expected   string
	}{
		{"enforcement mode", false, "Content-Security-Policy"},
		{"report-only mode", true, "Content-Security-Policy-Report-Only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewCSPBuilder().ReportOnly(tt.reportOnly)
			if headerName := builder.HeaderName(); headerName != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, headerName)
			}
		})
	}
}

func TestSwaggerUIPolicy(t *testing.T) {
	policy := SwaggerUIPolicy().Build()

	mustContainAll(t, policy, []string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net",
		"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net",
		"img-src 'self' data: https:",
		"font-src 'self' data:",
		"connect-src 'self' blob:",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
		"object-src 'none'",
	})

	t.Run("report-only variant", func(t *testing.T) {
		builder := SwaggerUIPolicy().ReportOnly(true)
		if headerName := builder.HeaderName(); headerName != "Content-Security-Policy-Report-Only" {
			t.Errorf("expected report-only header name, got %q", headerName)
		}
		if builder.Build() == "" {
			t.Error("policy should not be empty")
		}
	})
}

func TestStrictPolicy(t *testing.T) {
	policy := StrictPolicy().Build()

	mustContainAll(t, policy, []string{
		"default-src 'none'",
		"connect-src 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	})

	// JSON エンドポイント用ポリシーに unsafe-inline が混入していないこと
	if strings.Contains(policy, "unsafe-inline") {
		t.Error("strict policy should not contain 'unsafe-inline'")
	}
}

func TestRelaxedPolicy(t *testing.T) {
	policy := RelaxedPolicy().Build()

	if !strings.Contains(policy, "unsafe-inline") {
		t.Error("relaxed policy should contain 'unsafe-inline'")
	}
	if !strings.Contains(policy, "unsafe-eval") {
		t.Error("relaxed policy should contain 'unsafe-eval'")
	}
}

func BenchmarkCSPBuilder_Build(b *testing.B) {
	builder := NewCSPBuilder().
		DefaultSrc("'self'").
		ScriptSrc("'self'", "https://cdn.example.com").
		StyleSrc("'self'", "'unsafe-inline'").
		ImgSrc("'self'", "data:").
		ConnectSrc("'self'").
		FrameAncestors("'none'").
		BaseUri("'self'").
		ObjectSrc("'none'")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = builder.Build()
	}
}

func BenchmarkSwaggerUIPolicy(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SwaggerUIPolicy().Build()
	}
}
