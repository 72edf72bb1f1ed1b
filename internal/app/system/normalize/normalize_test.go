package normalize

import (
	"strings"
	"testing"
)

func TestEmail(t *testing.T) {
	tests := []struct{ in, want string }{
		{"User@Example.COM", "user@example.com"},
		{"  a@b.co  ", "a@b.co"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Email(tt.in); got != tt.want {
			t.Errorf("Email(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Ada   Lovelace ", "Ada Lovelace"},
		{"Grace\tHopper", "Grace Hopper"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Name(tt.in); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQueryParam(t *testing.T) {
	if got := QueryParam("  go  "); got != "go" {
		t.Errorf("QueryParam trim = %q", got)
	}
	long := strings.Repeat("x", 500)
	if got := QueryParam(long); got != long {
		t.Errorf("QueryParam shortened a %d-byte query to %d", len(long), len(got))
	}
}

func TestQueryFits(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"short", "golang", true},
		{"at cap", strings.Repeat("x", MaxQueryRunes), true},
		{"over cap", strings.Repeat("x", MaxQueryRunes+1), false},
		{"multibyte at cap", strings.Repeat("é", MaxQueryRunes), true},
		{"multibyte over cap", "a" + strings.Repeat("é", MaxQueryRunes), false},
		{"invalid utf8", "go\xff", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueryFits(tt.in); got != tt.want {
				t.Errorf("QueryFits = %v, want %v", got, tt.want)
			}
		})
	}
}
