package util

import "strings"

// TrimPtr trims the pointed string in place and returns the pointer; nil stays nil.
func TrimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

// IsBlank reports whether value is nil or only whitespace.
func IsBlank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}

// StringPtr returns a pointer to a copy of value.
func StringPtr(value string) *string {
	return &value
}

// Int64Ptr returns a pointer to a copy of value.
func Int64Ptr(value int64) *int64 {
	return &value
}
