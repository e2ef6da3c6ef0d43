package common

import "strings"

// MaskSecret keeps the first four characters of s and hides the rest.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}

// MaskPhone hides all but the last four digits of a phone number.
//
//	MaskPhone("13800001111") // "*******1111"
func MaskPhone(p string) string {
	if len(p) <= 4 {
		return p
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// It is used to drop typed-in passwords from memory after use.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
