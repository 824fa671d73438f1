package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeName_ControlChars(t *testing.T) {
	got := SanitizeName(" A\nB\rC\tD\x00 ", 100)
	if strings.ContainsAny(got, "\n\r\t\x00") {
		t.Fatalf("sanitize output contains control chars: %q", got)
	}
	if got != "ABCD" {
		t.Fatalf("SanitizeName control char behavior mismatch, got %q", got)
	}
}

func TestSanitizeName_MaxLength(t *testing.T) {
	got := SanitizeName("abcdefghijklmnopqrstuvwxyz", 10)
	if len([]rune(got)) != 10 {
		t.Fatalf("expected length 10, got %d (%q)", len([]rune(got)), got)
	}
}

func TestSanitizeName_ReplacesDisallowed(t *testing.T) {
	got := SanitizeName("bad<>|\"name", 100)
	if got != "bad____name" {
		t.Fatalf("SanitizeName disallowed replacement mismatch: got %q", got)
	}
}

func TestSafeBaseName_StripsExtensionAndPath(t *testing.T) {
	got := safeBaseName("/tmp/lecture 01.mp4", "fallback")
	if got != "lecture 01" {
		t.Fatalf("safeBaseName = %q, want %q", got, "lecture 01")
	}
}

func TestSafeBaseName_FallsBack(t *testing.T) {
	if got := safeBaseName("\x00\x01\n", "media-123"); got != "media-123" {
		t.Fatalf("safeBaseName fallback = %q, want %q", got, "media-123")
	}
	if got := safeBaseName("", ""); got != "export" {
		t.Fatalf("safeBaseName final fallback = %q, want %q", got, "export")
	}
}

func TestValidateDir_Valid(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("ValidateDir(%q) error = %v, want nil", dir, err)
	}
}

func TestValidateDir_NotExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	if err := ValidateDir(missing); err == nil {
		t.Fatalf("ValidateDir(%q) expected error for non-existent path", missing)
	}
}

func TestValidateDir_PathTraversal(t *testing.T) {
	if err := ValidateDir("/tmp/../etc"); err == nil {
		t.Fatal("ValidateDir expected traversal error")
	}
}

func TestValidateDir_NotADir(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := ValidateDir(filePath); err == nil {
		t.Fatalf("ValidateDir(%q) expected non-directory error", filePath)
	}
}
