package limits

import (
	"testing"
)

func testMatchers() []SiteMatcher {
	return CompileMatchers([]SiteConfig{
		{ID: "x", Domains: []string{"x.com", "twitter.com"}, Enabled: true},
		{ID: "instagram", Domains: []string{"instagram.com"}, Enabled: true},
	})
}

func TestResolveURL(t *testing.T) {
	matchers := testMatchers()

	tests := []struct {
		name string
		url  string
		want string // site id, "" for no match
	}{
		{"exact domain", "https://x.com/home", "x"},
		{"secondary domain", "https://twitter.com/explore", "x"},
		{"subdomain", "https://mobile.twitter.com/home", "x"},
		{"deep subdomain", "https://a.b.instagram.com/", "instagram"},
		{"uppercase host", "https://WWW.X.COM/", "x"},
		{"suffix is not subdomain", "https://notx.com/", ""},
		{"unrelated host", "https://example.com/", ""},
		{"malformed url", "not-a-url", ""},
		{"empty string", "", ""},
		{"scheme only", "https://", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveURL(tt.url, matchers)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("ResolveURL(%q) = %q, want no match", tt.url, got.ID)
			case tt.want != "" && got == nil:
				t.Errorf("ResolveURL(%q) = nil, want %q", tt.url, tt.want)
			case tt.want != "" && got.ID != tt.want:
				t.Errorf("ResolveURL(%q) = %q, want %q", tt.url, got.ID, tt.want)
			}
		})
	}
}

func TestResolveURL_FirstMatchWins(t *testing.T) {
	matchers := CompileMatchers([]SiteConfig{
		{ID: "first", Domains: []string{"example.com"}, Enabled: true},
		{ID: "second", Domains: []string{"www.example.com"}, Enabled: true},
	})

	got := ResolveURL("https://www.example.com/", matchers)
	if got == nil || got.ID != "first" {
		t.Errorf("resolution = %v, want first matcher in config order", got)
	}
}

func TestCompileMatchers(t *testing.T) {
	matchers := CompileMatchers([]SiteConfig{
		{ID: "a", Domains: []string{"*.Example.COM", ".other.net"}, Enabled: true},
		{ID: "disabled", Domains: []string{"skip.com"}, Enabled: false},
		{ID: "empty", Domains: []string{"", "   "}, Enabled: true},
	})

	if len(matchers) != 1 {
		t.Fatalf("got %d matchers, want 1 (disabled and domainless sites dropped)", len(matchers))
	}
	if matchers[0].ID != "a" {
		t.Errorf("matcher id = %q, want a", matchers[0].ID)
	}
	want := []string{"example.com", "other.net"}
	for i, domain := range want {
		if matchers[0].Domains[i] != domain {
			t.Errorf("domain[%d] = %q, want %q (normalized)", i, matchers[0].Domains[i], domain)
		}
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Example.com", "example.com"},
		{"*.example.com", "example.com"},
		{".example.com", "example.com"},
		{"  x.com  ", "x.com"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeDomain(tt.in); got != tt.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
