package utils

import "strings"

// PtrValue returns the value of a pointer or a default value if nil
func PtrValue[T any](ptr *T, defaultValue T) T {
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

// Ptr returns a pointer to the given value
func Ptr[T any](v T) *T {
	return &v
}

// NilIfEmpty returns nil for an empty string so nullable columns stay NULL
func NilIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
