// Package scan walks a source tree and yields identity records for the media
// files a job should consider. Traversal order is deterministic (directory
// entries are visited in name order) so repeated walks over an unchanged tree
// produce the same sequence.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shoebox/internal/media"
)

// Scanner filters a recursive directory walk by extension.
type Scanner struct {
	extensions map[string]struct{}
	maxDepth   int
}

// New builds a Scanner for the given extension set. Extensions are matched
// case-insensitively and must include the leading dot. maxDepth bounds
// recursion and, together with visited-directory tracking, guards against
// symlink cycles.
func New(extensions []string, maxDepth int) *Scanner {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = struct{}{}
	}
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &Scanner{extensions: set, maxDepth: maxDepth}
}

// Walk traverses root and invokes fn for every recognized file, in traversal
// order. Returning an error from fn aborts the walk. Each invocation performs a
// fresh filesystem walk; nothing is memoized here.
func (s *Scanner) Walk(ctx context.Context, root string, fn func(media.FileRecord) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source root %q is not a directory", root)
	}

	visited := make(map[string]struct{})
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		visited[resolved] = struct{}{}
	}
	return s.walkDir(ctx, root, 1, visited, fn)
}

// Collect runs Walk and gathers all records, giving callers a stable total
// before per-file processing starts.
func (s *Scanner) Collect(ctx context.Context, root string) ([]media.FileRecord, error) {
	var records []media.FileRecord
	err := s.Walk(ctx, root, func(record media.FileRecord) error {
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Scanner) walkDir(ctx context.Context, dir string, depth int, visited map[string]struct{}, fn func(media.FileRecord) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth > s.maxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable subdirectories are skipped; only the root is fatal and
		// that is checked before the walk starts.
		return nil
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() || (entry.Type()&os.ModeSymlink != 0 && isDir(path)) {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				continue
			}
			if _, seen := visited[resolved]; seen {
				continue
			}
			visited[resolved] = struct{}{}
			if err := s.walkDir(ctx, path, depth+1, visited, fn); err != nil {
				return err
			}
			continue
		}

		if _, ok := s.extensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		record := media.FileRecord{Path: path, Size: info.Size(), ModTime: info.ModTime()}
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
