package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile creates a file with the given contents, creating parents as
// needed, and returns its path.
func WriteFile(t testing.TB, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteMediaTree lays out a small source tree of photo files and returns its
// root. Filenames carry no usable metadata, so everything groups under the
// fallback folders.
func WriteMediaTree(t testing.TB, names ...string) string {
	t.Helper()

	root := t.TempDir()
	if len(names) == 0 {
		names = []string{"a.jpg", "b.jpg", "nested/c.png"}
	}
	for _, name := range names {
		WriteFile(t, root, name, "media:"+name)
	}
	return root
}

// TouchWithModTime rewrites a file's timestamps, for cache identity tests.
func TouchWithModTime(t testing.TB, path string, when time.Time) {
	t.Helper()

	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
