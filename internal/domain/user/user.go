// Package user provides the caller identity.
package user

// Identity is the resolved bearer credential. The core treats it as opaque
// and relies only on stable equality of ID for ownership checks.
type Identity struct {
	ID            string
	EmailVerified bool
}

// IsZero reports whether no identity was resolved.
func (i Identity) IsZero() bool {
	return i.ID == ""
}
