package reader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/foliotalk/foliotalk/internal/events"
	"github.com/foliotalk/foliotalk/internal/storage"
)

// Update is the payload delivered to reader subscribers
type Update struct {
	Page  int
	Image image.Image
}

// Options configures a Reader
type Options struct {
	CacheTTL       time.Duration
	ViewportHeight float64
}

// Reader owns the view state of one open document: geometry, current page,
// outline, bookmarks and the slot renderer. It is driven by the UI layer and
// publishes page-change and page-rendered events.
type Reader struct {
	renderer  *Renderer
	bookmarks *storage.BookmarkStore
	broker    *events.Broker[Update]

	mu          sync.Mutex
	doc         Document
	documentID  string
	geometry    Geometry
	numPages    int
	currentPage int
	invert      bool
	outline     []OutlineItem
	metadata    Metadata
	viewport    float64
}

// New creates a reader persisting bookmarks through the given store
func New(bookmarks *storage.BookmarkStore, opts Options) *Reader {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &Reader{
		renderer:  NewRenderer(opts.CacheTTL),
		bookmarks: bookmarks,
		broker:    events.NewBroker[Update](),
		viewport:  opts.ViewportHeight,
	}
}

// Subscribe delivers page-change and page-rendered events until ctx ends
func (r *Reader) Subscribe(ctx context.Context, filters ...events.EventFilter) <-chan events.Event[Update] {
	return r.broker.Subscribe(ctx, filters...)
}

// LoadDocument opens a document for viewing. Page count and the first page's
// intrinsic size become the uniform row estimate; the outline and metadata
// are extracted best-effort, their absence is not an error.
func (r *Reader) LoadDocument(doc Document, documentID string) error {
	numPages := doc.NumPages()
	if numPages < 1 {
		return errors.New("document has no pages")
	}
	width, height := doc.PageSize()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("document reports invalid page size %gx%g", width, height)
	}

	r.renderer.SetDocument(doc)

	r.mu.Lock()
	r.doc = doc
	r.documentID = documentID
	r.numPages = numPages
	r.geometry = Geometry{Width: width, Height: height, Scale: 1.0}
	r.currentPage = 1
	r.invert = false
	r.outline = doc.Outline()
	r.metadata = Metadata{}
	if mp, ok := doc.(MetadataProvider); ok {
		r.metadata = mp.Metadata()
	}
	r.mu.Unlock()
	return nil
}

// Close cancels in-flight decodes and stops event delivery
func (r *Reader) Close() {
	r.renderer.CancelAll()
	r.broker.Shutdown()
}

// SetViewport records the visible height used for centered navigation
func (r *Reader) SetViewport(height float64) {
	r.mu.Lock()
	r.viewport = height
	r.mu.Unlock()
}

// Geometry returns the current page geometry
func (r *Reader) Geometry() Geometry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geometry
}

// NumPages returns the open document's page count
func (r *Reader) NumPages() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.numPages
}

// CurrentPage returns the page under the last known scroll position
func (r *Reader) CurrentPage() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentPage
}

// Metadata returns the open document's metadata, zero when absent
func (r *Reader) Metadata() Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metadata
}

// Outline returns the open document's table of contents
func (r *Reader) Outline() []OutlineItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outline
}

// Inverted reports whether dark-mode rendering is active
func (r *Reader) Inverted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invert
}

// OnScroll derives the current page from the scroll offset. Page indicators
// follow the true scroll position, not the (lagging) rendered state.
func (r *Reader) OnScroll(scrollOffset float64) int {
	r.mu.Lock()
	page := r.geometry.PageAt(scrollOffset, r.numPages)
	changed := page != r.currentPage
	r.currentPage = page
	r.mu.Unlock()

	if changed {
		r.broker.Publish(events.ReaderPageChanged, Update{Page: page})
	}
	return page
}

// GoToPage clamps the target and returns the scroll offset that centers it
func (r *Reader) GoToPage(page int) float64 {
	r.mu.Lock()
	page = clampPage(page, r.numPages)
	changed := page != r.currentPage
	r.currentPage = page
	offset := r.geometry.OffsetFor(page, r.numPages, r.viewport)
	r.mu.Unlock()

	if changed {
		r.broker.Publish(events.ReaderPageChanged, Update{Page: page})
	}
	return offset
}

// GoToOutline navigates to an outline entry. Direct page destinations jump
// immediately; opaque references resolve against the document first. A
// failed resolution is a no-op.
func (r *Reader) GoToOutline(ctx context.Context, item OutlineItem) (float64, bool) {
	page := item.Page
	if page < 1 {
		r.mu.Lock()
		doc := r.doc
		r.mu.Unlock()
		if doc == nil || item.Ref == "" {
			return 0, false
		}
		resolved, err := doc.ResolvePageRef(ctx, item.Ref)
		if err != nil {
			log.Printf("reader: outline ref %q did not resolve: %v", item.Ref, err)
			return 0, false
		}
		page = resolved
	}
	return r.GoToPage(page), true
}

// SetScale sets the zoom factor, clamped to the supported range
func (r *Reader) SetScale(scale float64) {
	r.mu.Lock()
	r.geometry.Scale = clampScale(scale)
	r.mu.Unlock()
}

// ZoomIn increases zoom by one step
func (r *Reader) ZoomIn() {
	r.mu.Lock()
	r.geometry.Scale = clampScale(r.geometry.Scale + ZoomStep)
	r.mu.Unlock()
}

// ZoomOut decreases zoom by one step
func (r *Reader) ZoomOut() {
	r.mu.Lock()
	r.geometry.Scale = clampScale(r.geometry.Scale - ZoomStep)
	r.mu.Unlock()
}

// Rotate advances rotation by a quarter turn clockwise
func (r *Reader) Rotate() {
	r.mu.Lock()
	r.geometry.Rotation = normalizeRotation(r.geometry.Rotation + quartTurn)
	r.mu.Unlock()
}

// ToggleInvert flips dark-mode rendering
func (r *Reader) ToggleInvert() {
	r.mu.Lock()
	r.invert = !r.invert
	r.mu.Unlock()
}

// RequestPage asks the renderer for one page's raster at the current
// geometry. The result arrives as a ReaderPageRendered event; superseded and
// failed decodes produce nothing.
func (r *Reader) RequestPage(ctx context.Context, page int) {
	r.mu.Lock()
	req := RenderRequest{
		Page:     clampPage(page, r.numPages),
		Scale:    r.geometry.Scale,
		Rotation: r.geometry.Rotation,
		Invert:   r.invert,
	}
	r.mu.Unlock()

	r.renderer.Render(ctx, req, func(img image.Image) {
		r.broker.Publish(events.ReaderPageRendered, Update{Page: req.Page, Image: img})
	})
}

// ToggleBookmark toggles a bookmark on the current page, titled by page
// number, and persists the set immediately.
func (r *Reader) ToggleBookmark() (bool, error) {
	r.mu.Lock()
	documentID := r.documentID
	page := r.currentPage
	r.mu.Unlock()

	if documentID == "" {
		return false, errors.New("no document open")
	}
	return r.bookmarks.Toggle(documentID, page, fmt.Sprintf("Page %d", page))
}

// Bookmarks returns the open document's bookmarks in page order
func (r *Reader) Bookmarks() []storage.Bookmark {
	r.mu.Lock()
	documentID := r.documentID
	r.mu.Unlock()
	if documentID == "" {
		return nil
	}
	return r.bookmarks.List(documentID)
}
