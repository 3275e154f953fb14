package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// Bookmark marks one page of one document
type Bookmark struct {
	Page      int       `json:"page"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// BookmarkStore persists bookmark sets as a JSON file, one set per document
// id. Presence per page is treated as a boolean: toggling an existing page
// removes it, toggling a missing page adds it.
type BookmarkStore struct {
	mu       sync.Mutex
	filePath string
	sets     map[string][]Bookmark
}

// NewBookmarkStore creates a bookmark store backed by the config directory
func NewBookmarkStore(pm *PathManager) (*BookmarkStore, error) {
	filePath, err := pm.BookmarksPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bookmarks path: %w", err)
	}

	bs := &BookmarkStore{
		filePath: filePath,
		sets:     map[string][]Bookmark{},
	}

	if err := bs.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load bookmarks: %w", err)
		}
	}

	return bs, nil
}

func (bs *BookmarkStore) load() error {
	data, err := os.ReadFile(bs.filePath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &bs.sets)
}

func (bs *BookmarkStore) save() error {
	data, err := json.MarshalIndent(bs.sets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(bs.filePath, data, 0644)
}

// Toggle adds a bookmark for the page if none exists, or removes the
// existing one. It persists immediately and reports whether a bookmark was
// added.
func (bs *BookmarkStore) Toggle(documentID string, page int, title string) (bool, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	set := bs.sets[documentID]
	for i, b := range set {
		if b.Page == page {
			bs.sets[documentID] = append(set[:i], set[i+1:]...)
			if len(bs.sets[documentID]) == 0 {
				delete(bs.sets, documentID)
			}
			return false, bs.save()
		}
	}

	bs.sets[documentID] = append(set, Bookmark{
		Page:      page,
		Title:     title,
		CreatedAt: time.Now(),
	})
	return true, bs.save()
}

// List returns the document's bookmarks in page order
func (bs *BookmarkStore) List(documentID string) []Bookmark {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	set := bs.sets[documentID]
	out := make([]Bookmark, len(set))
	copy(out, set)
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// Has reports whether the page is bookmarked
func (bs *BookmarkStore) Has(documentID string, page int) bool {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	for _, b := range bs.sets[documentID] {
		if b.Page == page {
			return true
		}
	}
	return false
}
