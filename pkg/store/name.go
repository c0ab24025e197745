package store

import (
	"fmt"
	"strings"
)

// maxNameLength caps object names at the common filesystem limit so
// every backend can hold every valid name.
const maxNameLength = 255

// BaseName strips any directory components from a client-supplied
// path, accepting both slash and backslash separators. Uploads land
// under the file's own name regardless of where the client read it
// from.
func BaseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ValidateName reports whether name is usable as an object name in any
// backend. The rules are shared by all implementations so that a store
// swap never changes which names round-trip.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty name: %w", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	case len(name) > maxNameLength:
		return fmt.Errorf("name exceeds %d bytes: %w", maxNameLength, ErrInvalidName)
	case strings.ContainsAny(name, "/\\\x00\n\r"):
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}
