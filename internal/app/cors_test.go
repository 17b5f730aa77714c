package app

import "testing"

func TestExtractOriginHost(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"https://app.example.com", "app.example.com"},
		{"http://localhost:3000", "localhost:3000"},
		{"app.example.com", "app.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := extractOriginHost(tt.origin); got != tt.want {
			t.Errorf("extractOriginHost(%q) = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestMatchOriginPattern(t *testing.T) {
	tests := []struct {
		pattern string
		host    string
		want    bool
	}{
		{"app.example.com", "app.example.com", true},
		{"app.example.com", "evil.com", false},
		{"*.example.com", "app.example.com", true},
		{"*.example.com", "a.b.example.com", true},
		{"*.example.com", "example.org", false},
		{"localhost:*", "localhost:3000", true},
		{"localhost:*", "localhost:8080", true},
		{"localhost:*", "remotehost:3000", false},
	}
	for _, tt := range tests {
		if got := matchOriginPattern(tt.pattern, tt.host); got != tt.want {
			t.Errorf("matchOriginPattern(%q, %q) = %v, want %v", tt.pattern, tt.host, got, tt.want)
		}
	}
}
