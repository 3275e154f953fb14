package storage

import (
	"testing"
)

func TestBookmarkToggleRoundTrip(t *testing.T) {
	bs, err := NewBookmarkStore(NewPathManagerAt(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}

	added, err := bs.Toggle("doc-1", 5, "Page 5")
	if err != nil {
		t.Fatal(err)
	}
	if !added || !bs.Has("doc-1", 5) {
		t.Fatal("first toggle did not add the bookmark")
	}

	added, err = bs.Toggle("doc-1", 5, "Page 5")
	if err != nil {
		t.Fatal(err)
	}
	if added || bs.Has("doc-1", 5) {
		t.Fatal("second toggle did not remove the bookmark")
	}
	if list := bs.List("doc-1"); len(list) != 0 {
		t.Fatalf("bookmark set not back to original state: %+v", list)
	}
}

func TestBookmarksScopedPerDocument(t *testing.T) {
	bs, err := NewBookmarkStore(NewPathManagerAt(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := bs.Toggle("doc-a", 3, "Page 3"); err != nil {
		t.Fatal(err)
	}
	if bs.Has("doc-b", 3) {
		t.Error("bookmark leaked across documents")
	}
	if list := bs.List("doc-b"); len(list) != 0 {
		t.Errorf("foreign document sees bookmarks: %+v", list)
	}
}

func TestBookmarksSurviveReload(t *testing.T) {
	dir := t.TempDir()

	bs, err := NewBookmarkStore(NewPathManagerAt(dir))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bs.Toggle("doc-1", 2, "Page 2"); err != nil {
		t.Fatal(err)
	}
	if _, err := bs.Toggle("doc-1", 9, "Page 9"); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewBookmarkStore(NewPathManagerAt(dir))
	if err != nil {
		t.Fatal(err)
	}
	list := reloaded.List("doc-1")
	if len(list) != 2 || list[0].Page != 2 || list[1].Page != 9 {
		t.Fatalf("reloaded bookmarks wrong: %+v", list)
	}
}
