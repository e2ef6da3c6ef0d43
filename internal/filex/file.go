package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// EnsureDir creates dir (and parents) when missing and returns its absolute
// path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return abs, nil
}

// EnsureSubDir creates dirName under base and returns the joined path.
func EnsureSubDir(base, dirName string) (string, error) {
	return EnsureDir(filepath.Join(base, dirName))
}

// Ext returns the lowercased extension of path without the dot, "jpg" when
// there is none.
func Ext(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return "jpg"
	}
	return ext
}

// BuildFilename names an uploaded attachment:
// YYYYMMDD/<last 4 digits of phone>_<YYYYMMDDhhmmss><millis>.<ext>.
func BuildFilename(userPhone, path string, now time.Time) string {
	var digits strings.Builder
	for _, r := range userPhone {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			digits.WriteRune(r)
		}
	}
	last4 := digits.String()
	switch {
	case last4 == "":
		last4 = "0000"
	case len(last4) > 4:
		last4 = last4[len(last4)-4:]
	}
	return fmt.Sprintf("%s/%s_%s%03d.%s",
		now.Format("20060102"), last4, now.Format("20060102150405"), now.Nanosecond()/int(time.Millisecond), Ext(path))
}
