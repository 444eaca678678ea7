// Package store keeps parsed catalogs in a thread-safe in-memory
// registry with TTL eviction.
package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/tagcat/catalog"
)

// Catalog is a stored, parsed tag catalog.
type Catalog struct {
	ID          string          `json:"catalog_id"`
	Name        string          `json:"name"`
	Filename    string          `json:"filename"`
	ContentHash string          `json:"content_hash"`
	Groups      []catalog.Group `json:"groups"`
	CreatedAt   time.Time       `json:"created_at"`
}

// GroupCount returns the number of groups in the catalog.
func (c *Catalog) GroupCount() int {
	return len(c.Groups)
}

// TagCount returns the total number of tags across all groups.
func (c *Catalog) TagCount() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Tags)
	}
	return n
}

// Summary is the list-view projection of a catalog, without its groups.
type Summary struct {
	ID          string    `json:"catalog_id"`
	Name        string    `json:"name"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	GroupCount  int       `json:"group_count"`
	TagCount    int       `json:"tag_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is a thread-safe in-memory catalog registry with TTL eviction.
type Store struct {
	mu       sync.Mutex
	catalogs map[string]*Catalog
	ttl      time.Duration
}

// New creates a Store. Catalogs older than ttl are removed by Cleanup.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		catalogs: make(map[string]*Catalog),
		ttl:      ttl,
	}
}

// Put registers a catalog, assigning an ID and creation time if unset.
func (s *Store) Put(c *Catalog) {
	if c.ID == "" {
		c.ID = generateULID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogs[c.ID] = c
}

// Get returns the catalog with the given ID, or nil.
func (s *Store) Get(id string) *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalogs[id]
}

// Delete removes a catalog, reporting whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.catalogs[id]; !ok {
		return false
	}
	delete(s.catalogs, id)
	return true
}

// List returns summaries of all stored catalogs, newest first.
func (s *Store) List() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, 0, len(s.catalogs))
	for _, c := range s.catalogs {
		out = append(out, Summary{
			ID:          c.ID,
			Name:        c.Name,
			Filename:    c.Filename,
			ContentHash: c.ContentHash,
			GroupCount:  c.GroupCount(),
			TagCount:    c.TagCount(),
			CreatedAt:   c.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Cleanup removes expired catalogs and returns how many were evicted.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	evicted := 0
	for id, c := range s.catalogs {
		if now.Sub(c.CreatedAt) > s.ttl {
			delete(s.catalogs, id)
			evicted++
		}
	}
	return evicted
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
