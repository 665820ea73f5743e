package db

import (
	"fmt"
	"os"
	"strings"
)

// Limits of the host filesystem. The values match linux (NAME_MAX, PATH_MAX)
// and are used on every platform so that keys are portable between engines.
const (
	NameMax = 255
	PathMax = 4096
)

// ValidateKey checks that key can be stored by any engine.
//
// A key must be non-empty, at most NameMax bytes long and must not contain a
// path separator or a NUL byte. The names "." and ".." are rejected as well so
// that a key can never address anything outside of a dataset.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	case len(key) > NameMax:
		return fmt.Errorf("%w: %d bytes (max %d)", ErrKeyTooLong, len(key), NameMax)
	case key == "." || key == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.ContainsRune(key, '/'),
		strings.ContainsRune(key, os.PathSeparator),
		strings.IndexByte(key, 0) >= 0:
		return fmt.Errorf("%w: %q contains a separator or NUL byte", ErrInvalidKey, key)
	}
	return nil
}
