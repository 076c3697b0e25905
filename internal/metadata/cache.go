package metadata

import (
	"sync"

	"shoebox/internal/media"
)

// Source is the extraction seam the cache delegates to on a miss.
type Source interface {
	Extract(path string) (media.Metadata, error)
}

type cacheEntry struct {
	record media.FileRecord
	meta   media.Metadata
}

// Cache memoizes extraction results keyed by file identity (path, size, mtime).
// An entry is served only while a fresh stat of the path matches the recorded
// identity; any size or mtime drift forces re-extraction. Entries are never
// invalidated by content hashing. The cache is an owned component instance, not
// a process singleton, so parallel orchestrators can run isolated.
type Cache struct {
	source Source

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache wraps source with an identity-keyed memo table.
func NewCache(source Source) *Cache {
	return &Cache{source: source, entries: make(map[string]cacheEntry)}
}

// GetOrExtract returns cached metadata when record matches the stored identity
// for its path, and otherwise extracts and stores under the fresh record.
// Concurrent extraction for the same path may race; last write wins, which is
// harmless because results for an unchanged file are identical.
func (c *Cache) GetOrExtract(record media.FileRecord) (media.Metadata, error) {
	c.mu.Lock()
	entry, ok := c.entries[record.Path]
	c.mu.Unlock()
	if ok && entry.record.SameIdentity(record) {
		return entry.meta, nil
	}

	meta, err := c.source.Extract(record.Path)
	if err != nil {
		return media.Metadata{}, err
	}

	c.mu.Lock()
	c.entries[record.Path] = cacheEntry{record: record, meta: meta}
	c.mu.Unlock()
	return meta, nil
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
