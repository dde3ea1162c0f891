package code_analyzer

import (
	"sync"

	"github.com/meysamhadeli/codai-studio/code_analyzer/models"
	"github.com/zeebo/xxh3"
)

// analysisCache memoizes per-file extraction results keyed by a content hash,
// so repeated distillations over an unchanged FileMap skip the regex passes.
type analysisCache struct {
	mu      sync.RWMutex
	entries map[uint64]models.FileAnalysis

	hits   int64
	misses int64
}

func newAnalysisCache() *analysisCache {
	return &analysisCache{
		entries: make(map[uint64]models.FileAnalysis),
	}
}

// key hashes path and content together; the same content under a different
// path still needs its own entry because symbols carry the owning path.
func (c *analysisCache) key(path string, content string) uint64 {
	hasher := xxh3.New()
	_, _ = hasher.WriteString(path)
	_, _ = hasher.WriteString("\x00")
	_, _ = hasher.WriteString(content)
	return hasher.Sum64()
}

func (c *analysisCache) Get(path string, content string) (models.FileAnalysis, bool) {
	k := c.key(path, content)

	c.mu.RLock()
	analysis, found := c.entries[k]
	c.mu.RUnlock()

	c.mu.Lock()
	if found {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	return analysis, found
}

func (c *analysisCache) Set(path string, content string, analysis models.FileAnalysis) {
	k := c.key(path, content)

	c.mu.Lock()
	c.entries[k] = analysis
	c.mu.Unlock()
}

// Stats reports hit/miss counters and entry count.
func (c *analysisCache) Stats() (hits int64, misses int64, entries int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.entries)
}

// Clear drops all cached analyses.
func (c *analysisCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]models.FileAnalysis)
	c.hits = 0
	c.misses = 0
}
