// internal/domain/models/authmethods.go
package models

// Auth methods recorded on a user. An account created with Google keeps
// AuthGoogle; a password account that later signs in with Google keeps
// AuthPassword and gains a GoogleID.
const (
	AuthPassword = "password"
	AuthGoogle   = "google"
)

// AuthMethods lists every stored auth method value.
var AuthMethods = []string{AuthPassword, AuthGoogle}

// IsValidAuthMethod checks if a value is a known auth method.
func IsValidAuthMethod(value string) bool {
	for _, m := range AuthMethods {
		if m == value {
			return true
		}
	}
	return false
}
