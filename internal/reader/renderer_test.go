package reader

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDocument renders solid-color rasters and lets tests stall or fail
// individual decodes.
type fakeDocument struct {
	pages   int
	width   float64
	height  float64
	outline []OutlineItem

	mu      sync.Mutex
	stall   map[int]chan struct{} // decode blocks until the channel closes
	fail    map[int]error
	renders int32
}

func newFakeDocument(pages int) *fakeDocument {
	return &fakeDocument{
		pages:  pages,
		width:  100,
		height: 150,
		stall:  map[int]chan struct{}{},
		fail:   map[int]error{},
	}
}

func (d *fakeDocument) NumPages() int              { return d.pages }
func (d *fakeDocument) PageSize() (float64, float64) { return d.width, d.height }
func (d *fakeDocument) Outline() []OutlineItem     { return d.outline }

func (d *fakeDocument) Render(ctx context.Context, page int, scale float64, rotation int) (image.Image, error) {
	atomic.AddInt32(&d.renders, 1)

	d.mu.Lock()
	gate := d.stall[page]
	failErr := d.fail[page]
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failErr != nil {
		return nil, failErr
	}

	// Encode the requested scale into the raster so tests can tell results apart
	side := int(scale * 10)
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	return img, nil
}

func (d *fakeDocument) ResolvePageRef(ctx context.Context, ref string) (int, error) {
	if ref == "chapter-2" {
		return 4, nil
	}
	return 0, errors.New("unknown ref")
}

func collect(results chan image.Image) func(image.Image) {
	return func(img image.Image) { results <- img }
}

func TestSupersededDecodeNeverPaints(t *testing.T) {
	doc := newFakeDocument(10)
	gate := make(chan struct{})
	doc.stall[3] = gate

	r := NewRenderer(time.Minute)
	r.SetDocument(doc)

	results := make(chan image.Image, 2)

	// First request stalls inside the decode
	r.Render(context.Background(), RenderRequest{Page: 3, Scale: 1.0}, collect(results))

	// Second request for the same slot supersedes it
	doc.mu.Lock()
	delete(doc.stall, 3)
	doc.mu.Unlock()
	r.Render(context.Background(), RenderRequest{Page: 3, Scale: 2.0}, collect(results))

	// Let the first decode finish late
	close(gate)

	var got image.Image
	select {
	case got = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("no raster delivered")
	}
	if got.Bounds().Dx() != 20 {
		t.Fatalf("stale raster painted: %v", got.Bounds())
	}

	// The superseded decode must stay silent
	select {
	case late := <-results:
		t.Fatalf("superseded decode painted after the winner: %v", late.Bounds())
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDecodeErrorLeavesSlotBlank(t *testing.T) {
	doc := newFakeDocument(10)
	doc.fail[2] = errors.New("corrupt page stream")

	r := NewRenderer(time.Minute)
	r.SetDocument(doc)

	results := make(chan image.Image, 1)
	r.Render(context.Background(), RenderRequest{Page: 2, Scale: 1.0}, collect(results))

	select {
	case img := <-results:
		t.Fatalf("failed decode delivered a raster: %v", img.Bounds())
	case <-time.After(300 * time.Millisecond):
	}
}

func TestCancellationIsSilent(t *testing.T) {
	doc := newFakeDocument(10)
	gate := make(chan struct{})
	doc.stall[1] = gate
	defer close(gate)

	r := NewRenderer(time.Minute)
	r.SetDocument(doc)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan image.Image, 1)
	r.Render(ctx, RenderRequest{Page: 1, Scale: 1.0}, collect(results))
	cancel()

	select {
	case <-results:
		t.Fatal("cancelled decode delivered a raster")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestCacheServesRepeatRequests(t *testing.T) {
	doc := newFakeDocument(10)
	r := NewRenderer(time.Minute)
	r.SetDocument(doc)

	results := make(chan image.Image, 2)
	r.Render(context.Background(), RenderRequest{Page: 1, Scale: 1.0}, collect(results))
	select {
	case <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("first render never delivered")
	}

	r.Render(context.Background(), RenderRequest{Page: 1, Scale: 1.0}, collect(results))
	select {
	case <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("cached render never delivered")
	}

	if n := atomic.LoadInt32(&doc.renders); n != 1 {
		t.Errorf("expected a single decode, got %d", n)
	}
}

func TestDocumentSwapFlushesCache(t *testing.T) {
	first := newFakeDocument(10)
	r := NewRenderer(time.Minute)
	r.SetDocument(first)

	results := make(chan image.Image, 2)
	r.Render(context.Background(), RenderRequest{Page: 1, Scale: 1.0}, collect(results))
	select {
	case <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("first render never delivered")
	}

	second := newFakeDocument(10)
	r.SetDocument(second)

	r.Render(context.Background(), RenderRequest{Page: 1, Scale: 1.0}, collect(results))
	select {
	case <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("render after swap never delivered")
	}

	if n := atomic.LoadInt32(&second.renders); n != 1 {
		t.Errorf("stale cache served across a document swap: %d renders on new doc", n)
	}
}

func TestInvertVariantsCachedSeparately(t *testing.T) {
	doc := newFakeDocument(10)
	r := NewRenderer(time.Minute)
	r.SetDocument(doc)

	results := make(chan image.Image, 2)
	r.Render(context.Background(), RenderRequest{Page: 1, Scale: 1.0}, collect(results))
	select {
	case <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("plain render never delivered")
	}

	r.Render(context.Background(), RenderRequest{Page: 1, Scale: 1.0, Invert: true}, collect(results))
	select {
	case <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("inverted render never delivered")
	}

	if n := atomic.LoadInt32(&doc.renders); n != 2 {
		t.Errorf("invert variant served from the plain cache entry: %d renders", n)
	}
}

func TestInvertFlipsChannels(t *testing.T) {
	doc := newFakeDocument(1)
	r := NewRenderer(time.Minute)
	r.SetDocument(doc)

	results := make(chan image.Image, 1)
	r.Render(context.Background(), RenderRequest{Page: 1, Scale: 1.0, Invert: true}, collect(results))

	var img image.Image
	select {
	case img = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("inverted render never delivered")
	}

	// The fake raster is zeroed RGBA; inversion turns RGB full-on
	c := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	if c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("RGB not inverted: %+v", c)
	}
}
