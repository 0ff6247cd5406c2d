package models

import "fmt"

// Credentials is the username/password pair exchanged for a controller
// session. The password is redacted from every string form.
type Credentials struct {
	Username string
	Password string //nolint:gosec // G117: field name, not a hardcoded secret
}

func (c Credentials) String() string {
	return fmt.Sprintf("%s:[redacted]", c.Username)
}

// GoString keeps %#v from leaking the password.
func (c Credentials) GoString() string {
	return fmt.Sprintf("models.Credentials{Username:%q, Password:\"[redacted]\"}", c.Username)
}
