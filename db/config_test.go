package db

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveSQLiteDSNMemoryPassthrough(t *testing.T) {
	for _, dsn := range []string{":memory:", "file::memory:?cache=shared"} {
		got, err := ResolveSQLiteDSN(dsn)
		if err != nil {
			t.Fatalf("ResolveSQLiteDSN(%q): %v", dsn, err)
		}
		if got != dsn {
			t.Fatalf("memory dsn must pass through, got %q", got)
		}
	}
}

func TestResolveSQLiteDSNCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "nested", "temtrack.db")
	got, err := ResolveSQLiteDSN(dsn)
	if err != nil {
		t.Fatalf("ResolveSQLiteDSN: %v", err)
	}
	if !strings.HasSuffix(got, "temtrack.db") {
		t.Fatalf("unexpected dsn %q", got)
	}
}
