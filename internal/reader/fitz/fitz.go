// Package fitz adapts the MuPDF bindings to the reader's document
// capability.
package fitz

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"
	gofitz "github.com/gen2brain/go-fitz"

	"github.com/foliotalk/foliotalk/internal/reader"
)

// Intrinsic page units are points at 72 DPI; scale maps linearly onto DPI
const baseDPI = 72

// Document wraps one open MuPDF document. The underlying handle is not safe
// for concurrent use, so every call serializes on a mutex.
type Document struct {
	mu  sync.Mutex
	doc *gofitz.Document
}

// Open opens a document from a file path
func Open(path string) (*Document, error) {
	doc, err := gofitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// OpenBytes opens a document held in memory
func OpenBytes(data []byte) (*Document, error) {
	doc, err := gofitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// NumPages returns the page count
func (d *Document) NumPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

// PageSize returns the first page's intrinsic size in points
func (d *Document) PageSize() (float64, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bound, err := d.doc.Bound(0)
	if err != nil {
		return 0, 0
	}
	return float64(bound.Dx()), float64(bound.Dy())
}

// Render decodes one page. Scale maps onto DPI; rotation happens as an image
// transform after decoding since MuPDF rasters are always upright.
func (d *Document) Render(ctx context.Context, page int, scale float64, rotation int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	img, err := d.doc.ImageDPI(page-1, baseDPI*scale)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to decode page %d: %w", page, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// imaging rotates counter-clockwise; the reader's rotation is clockwise
	switch rotation % 360 {
	case 90:
		return imaging.Rotate270(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate90(img), nil
	default:
		return img, nil
	}
}

// Outline extracts the table of contents, empty when the document has none
func (d *Document) Outline() []reader.OutlineItem {
	d.mu.Lock()
	defer d.mu.Unlock()

	toc, err := d.doc.ToC()
	if err != nil {
		return nil
	}
	items := make([]reader.OutlineItem, 0, len(toc))
	for _, entry := range toc {
		items = append(items, reader.OutlineItem{
			Level: entry.Level,
			Title: entry.Title,
			Page:  entry.Page,
			Ref:   entry.URI,
		})
	}
	return items
}

// ResolvePageRef resolves an outline destination. MuPDF's table of contents
// already carries page numbers, so only numeric references remain.
func (d *Document) ResolvePageRef(ctx context.Context, ref string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	page, err := strconv.Atoi(ref)
	if err != nil {
		return 0, fmt.Errorf("unresolvable page reference %q: %w", ref, err)
	}
	return page, nil
}

// Metadata returns the document's title and author when present
func (d *Document) Metadata() reader.Metadata {
	d.mu.Lock()
	defer d.mu.Unlock()

	meta := d.doc.Metadata()
	return reader.Metadata{
		Title:  meta["title"],
		Author: meta["author"],
	}
}

// Close releases the document handle
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}
