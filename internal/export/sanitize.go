package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const maxBaseNameLen = 80

// SanitizeName strips control characters and replaces anything outside a
// conservative filename alphabet with underscores.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// safeBaseName sanitizes name with its extension stripped, falling back to
// fallback when nothing survives sanitization.
func safeBaseName(name, fallback string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	cleaned := SanitizeName(base, maxBaseNameLen)
	if cleaned == "" {
		cleaned = SanitizeName(fallback, maxBaseNameLen)
	}
	if cleaned == "" {
		cleaned = "export"
	}
	return cleaned
}

// ValidateDir rejects empty, traversing, or non-directory export targets.
func ValidateDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("export directory is required")
	}

	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("export directory cannot contain path traversal")
		}
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("export directory does not exist")
		}
		return fmt.Errorf("invalid export directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("export path is not a directory")
	}

	return nil
}
