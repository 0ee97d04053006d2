package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// maxPathLength bounds dataset and output paths.
const maxPathLength = 4096

// ValidatePath validates a dataset or output file path supplied by a user.
//
// Validation rules:
//   - Path cannot be empty or blank
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//
// Unlike repository paths, dataset paths may be absolute and may contain
// "..": they name files on the caller's own machine.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateCacheURL validates a remote cache URL.
// Only redis:// and rediss:// URLs with a host are accepted.
func ValidateCacheURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "cache URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidConfig, err, "invalid cache URL")
	}

	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return New(ErrCodeInvalidConfig, "cache URL must use redis or rediss scheme, got %q", u.Scheme)
	}

	if u.Host == "" {
		return New(ErrCodeInvalidConfig, "cache URL must have a host")
	}

	return nil
}
