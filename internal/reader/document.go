// Package reader drives a virtualized, scroll-positioned view over a
// multi-page document: pure row geometry, cancellable page rasterization,
// outline navigation and per-document bookmarks.
package reader

import (
	"context"
	"image"
)

// Document is the decode capability the reader renders against. The engine
// behind it is a black box; the reader only asks for page counts, sizes and
// rasters.
type Document interface {
	// NumPages returns the page count
	NumPages() int

	// PageSize returns the intrinsic size of the first page in unscaled
	// units. Every row of the virtualized list is sized by this estimate.
	PageSize() (width, height float64)

	// Render decodes one page at the given scale and rotation. Rotation is
	// one of 0, 90, 180, 270 degrees clockwise. Pages are 1-indexed.
	Render(ctx context.Context, page int, scale float64, rotation int) (image.Image, error)

	// Outline returns the document's table of contents, possibly empty
	Outline() []OutlineItem

	// ResolvePageRef resolves an opaque outline destination to a page number
	ResolvePageRef(ctx context.Context, ref string) (int, error)
}

// OutlineItem is one table-of-contents entry. Page is the destination when
// positive; otherwise Ref holds an opaque reference resolved on navigation.
type OutlineItem struct {
	Level int
	Title string
	Page  int
	Ref   string
}

// Metadata holds document identification fields when the engine exposes them
type Metadata struct {
	Title  string
	Author string
}

// MetadataProvider is implemented by documents that carry metadata
type MetadataProvider interface {
	Metadata() Metadata
}
