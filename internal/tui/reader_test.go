package tui

import (
	"context"
	"image"
	"testing"

	"github.com/foliotalk/foliotalk/internal/reader"
	"github.com/foliotalk/foliotalk/internal/storage"
)

type stubDocument struct {
	pages   int
	outline []reader.OutlineItem
}

func (d *stubDocument) NumPages() int                { return d.pages }
func (d *stubDocument) PageSize() (float64, float64) { return 100, 150 }
func (d *stubDocument) Outline() []reader.OutlineItem {
	return d.outline
}
func (d *stubDocument) Render(ctx context.Context, page int, scale float64, rotation int) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 10, 15)), nil
}
func (d *stubDocument) ResolvePageRef(ctx context.Context, ref string) (int, error) {
	return 1, nil
}

func newStubReaderModel(t *testing.T, outline []reader.OutlineItem) *ReaderModel {
	t.Helper()
	bookmarks, err := storage.NewBookmarkStore(storage.NewPathManagerAt(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	r := reader.New(bookmarks, reader.Options{ViewportHeight: 40})
	t.Cleanup(r.Close)
	if err := r.LoadDocument(&stubDocument{pages: 20, outline: outline}, "doc-1"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewReaderModel(ctx, r)
}

func TestSidebarFuzzyFilter(t *testing.T) {
	m := newStubReaderModel(t, []reader.OutlineItem{
		{Level: 1, Title: "Introduction", Page: 1},
		{Level: 1, Title: "Advanced Topics", Page: 8},
		{Level: 2, Title: "Appendix", Page: 15},
	})

	if len(m.filtered) != 3 {
		t.Fatalf("unfiltered sidebar: %d entries", len(m.filtered))
	}

	m.filter = "intro"
	m.applyFilter()
	if len(m.filtered) != 1 || m.filtered[0].item.Title != "Introduction" {
		t.Errorf("fuzzy filter wrong: %+v", m.filtered)
	}

	// Case-insensitive and subsequence matching
	m.filter = "ADV"
	m.applyFilter()
	if len(m.filtered) != 1 || m.filtered[0].item.Title != "Advanced Topics" {
		t.Errorf("fold matching wrong: %+v", m.filtered)
	}

	m.filter = ""
	m.applyFilter()
	if len(m.filtered) != 3 {
		t.Errorf("clearing the filter did not restore entries: %d", len(m.filtered))
	}
}

func TestSidebarIncludesBookmarks(t *testing.T) {
	m := newStubReaderModel(t, []reader.OutlineItem{
		{Level: 1, Title: "Introduction", Page: 1},
	})

	m.reader.GoToPage(5)
	if _, err := m.reader.ToggleBookmark(); err != nil {
		t.Fatal(err)
	}
	m.rebuildEntries()

	if len(m.entries) != 2 {
		t.Fatalf("bookmark missing from sidebar: %+v", m.entries)
	}
	last := m.entries[1]
	if last.item.Page != 5 {
		t.Errorf("bookmark entry wrong: %+v", last)
	}
}

func TestOutlineIndentation(t *testing.T) {
	m := newStubReaderModel(t, []reader.OutlineItem{
		{Level: 1, Title: "Chapter", Page: 1},
		{Level: 2, Title: "Section", Page: 2},
	})

	if m.entries[0].title != "Chapter" {
		t.Errorf("top level indented: %q", m.entries[0].title)
	}
	if m.entries[1].title != "  Section" {
		t.Errorf("nested level not indented: %q", m.entries[1].title)
	}
}
