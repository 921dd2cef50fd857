package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// maxConfigSize caps config files at 1MB.
	maxConfigSize = 1 << 20
	// maxJSONDepth caps nesting to reject pathological documents.
	maxJSONDepth = 32
)

func validateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("path traversal in %q", path)
	}
	return nil
}

// safeReadFile reads a config file after validating path, size, and
// file mode.
func safeReadFile(path string) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes > %d", info.Size(), maxConfigSize)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}
	return data, nil
}

// validateJSONDepth rejects documents whose brace/bracket nesting
// exceeds maxJSONDepth, without fully parsing them.
func validateJSONDepth(data []byte) error {
	depth := 0
	inString := false
	escaped := false

	for _, b := range data {
		if escaped {
			escaped = false
			continue
		}
		if b == '\\' && inString {
			escaped = true
			continue
		}
		if b == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch b {
		case '{', '[':
			depth++
			if depth > maxJSONDepth {
				return fmt.Errorf("JSON nesting too deep: %d > %d", depth, maxJSONDepth)
			}
		case '}', ']':
			depth--
		}
	}
	return nil
}
