package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// DataDir returns an empty walletconnector data directory that is removed
// when the test ends. Keystores, key files, authorizations and the activity
// log all live below it.
func DataDir(tb testing.TB) string {
	tb.Helper()
	dir, err := os.MkdirTemp("", "walletconnector-test-*")
	if err != nil {
		tb.Fatalf("failed to create data dir: %v", err)
	}
	tb.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

// WriteFile writes content to dir/name with owner-only permissions, creating
// parent directories, and returns the full path.
func WriteFile(tb testing.TB, dir, name, content string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		tb.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		tb.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// SetEnv sets key for the duration of the test.
func SetEnv(tb testing.TB, key, value string) {
	tb.Helper()
	restoreEnv(tb, key)
	if err := os.Setenv(key, value); err != nil {
		tb.Fatalf("setenv %s: %v", key, err)
	}
}

// UnsetEnv removes key for the duration of the test, so a value exported in
// the developer's shell cannot leak into it.
func UnsetEnv(tb testing.TB, key string) {
	tb.Helper()
	restoreEnv(tb, key)
	if err := os.Unsetenv(key); err != nil {
		tb.Fatalf("unsetenv %s: %v", key, err)
	}
}

func restoreEnv(tb testing.TB, key string) {
	old, had := os.LookupEnv(key)
	tb.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
			return
		}
		_ = os.Unsetenv(key)
	})
}
