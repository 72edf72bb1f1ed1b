package models

import "testing"

func TestIsValidAuthMethod(t *testing.T) {
	for _, m := range []string{AuthPassword, AuthGoogle} {
		if !IsValidAuthMethod(m) {
			t.Errorf("IsValidAuthMethod(%q) = false", m)
		}
	}
	for _, m := range []string{"", "trust", "Google"} {
		if IsValidAuthMethod(m) {
			t.Errorf("IsValidAuthMethod(%q) = true", m)
		}
	}
}
