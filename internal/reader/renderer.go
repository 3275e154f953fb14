package reader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	gocache "github.com/patrickmn/go-cache"
)

// RenderRequest identifies one page raster
type RenderRequest struct {
	Page     int
	Scale    float64
	Rotation int
	Invert   bool
}

func (r RenderRequest) cacheKey() string {
	return fmt.Sprintf("%d|%.2f|%d|%t", r.Page, r.Scale, r.Rotation, r.Invert)
}

// Renderer decodes pages into raster images, one in-flight decode per page
// slot. A newer request for a slot cancels the pending one; whichever decode
// was requested last is the only one allowed to deliver, regardless of
// completion order. Decoded rasters are cached with a TTL and the cache is
// flushed when the document is swapped.
type Renderer struct {
	mu    sync.Mutex
	doc   Document
	cache *gocache.Cache
	slots map[int]*renderSlot
}

type renderSlot struct {
	cancel context.CancelFunc
}

// NewRenderer creates a renderer with the given raster cache TTL
func NewRenderer(cacheTTL time.Duration) *Renderer {
	return &Renderer{
		cache: gocache.New(cacheTTL, cacheTTL),
		slots: map[int]*renderSlot{},
	}
}

// SetDocument swaps the open document. All in-flight decodes are cancelled
// and the raster cache is flushed.
func (r *Renderer) SetDocument(doc Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for page, slot := range r.slots {
		slot.cancel()
		delete(r.slots, page)
	}
	r.doc = doc
	r.cache.Flush()
}

// Render decodes the requested page asynchronously and calls deliver with
// the raster on success. Superseded and cancelled decodes never deliver and
// never surface as errors; genuine decode failures are logged and leave the
// slot blank.
func (r *Renderer) Render(ctx context.Context, req RenderRequest, deliver func(image.Image)) {
	r.mu.Lock()
	doc := r.doc
	if doc == nil {
		r.mu.Unlock()
		return
	}

	if cached, ok := r.cache.Get(req.cacheKey()); ok {
		// Still the slot owner: a cache hit supersedes any pending decode
		if prev := r.slots[req.Page]; prev != nil {
			prev.cancel()
			delete(r.slots, req.Page)
		}
		r.mu.Unlock()
		deliver(cached.(image.Image))
		return
	}

	decodeCtx, cancel := context.WithCancel(ctx)
	if prev := r.slots[req.Page]; prev != nil {
		prev.cancel()
	}
	slot := &renderSlot{cancel: cancel}
	r.slots[req.Page] = slot
	r.mu.Unlock()

	go r.decode(decodeCtx, doc, req, slot, deliver)
}

func (r *Renderer) decode(ctx context.Context, doc Document, req RenderRequest, slot *renderSlot, deliver func(image.Image)) {
	img, err := doc.Render(ctx, req.Page, req.Scale, req.Rotation)

	if ctx.Err() != nil {
		// Superseded or torn down; silence is the contract
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("reader: decode page %d failed: %v", req.Page, err)
		return
	}

	if req.Invert {
		img = imaging.Invert(img)
	}

	r.mu.Lock()
	current, ok := r.slots[req.Page]
	if !ok || current != slot {
		// A newer request owns the slot now
		r.mu.Unlock()
		return
	}
	delete(r.slots, req.Page)
	r.cache.Set(req.cacheKey(), img, gocache.DefaultExpiration)
	r.mu.Unlock()

	deliver(img)
}

// CancelAll cancels every in-flight decode. Used on unmount.
func (r *Renderer) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for page, slot := range r.slots {
		slot.cancel()
		delete(r.slots, page)
	}
}
