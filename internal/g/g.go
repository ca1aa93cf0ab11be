// Package g holds small generic helpers shared across packages.
package g

// Pointer returns a pointer to a copy of o.
func Pointer[T any](o T) *T {
	return &o
}
