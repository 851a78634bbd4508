package render

import (
	"path/filepath"
	"sync"

	"github.com/swdee/go-trackbuilder/tracker"
)

// Pool is a simple pool of Drawers used to render frame images in parallel
type Pool struct {
	// pool of drawers
	drawers chan *Drawer
	// size of pool
	size  int
	close sync.Once
}

// NewPool creates a pool of size copies of the given Drawer
func NewPool(size int, d *Drawer) *Pool {

	if size < 1 {
		size = 1
	}

	p := &Pool{
		drawers: make(chan *Drawer, size),
		size:    size,
	}

	for i := 0; i < size; i++ {
		cp := *d
		p.Return(&cp)
	}

	return p
}

// Size returns the number of drawers in the pool
func (p *Pool) Size() int {
	return p.size
}

// Get a drawer from the pool
func (p *Pool) Get() *Drawer {
	return <-p.drawers
}

// Return a drawer to the pool
func (p *Pool) Return(d *Drawer) {
	select {
	case p.drawers <- d:
	default:
		// pool is full or closed
	}
}

// Close the pool
func (p *Pool) Close() {
	p.close.Do(func() {
		close(p.drawers)
	})
}

// DrawAll renders every frame image using the drawers of the pool in
// parallel.  Tracks must be frozen, they are only read while drawing.  It
// returns the number of images written and the first error seen.
func (p *Pool) DrawAll(tracks []*tracker.Track, frames []FrameImage) (int, error) {

	if len(frames) == 0 {
		return 0, nil
	}

	first := p.Get()
	err := first.prepareOutput()
	p.Return(first)

	if err != nil {
		return 0, err
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		written  int
		firstErr error
	)

	for _, f := range frames {

		d := p.Get()
		wg.Add(1)

		go func(d *Drawer, f FrameImage) {
			defer wg.Done()
			defer p.Return(d)

			src := filepath.Join(d.ImageDir, filepath.Base(f.Image))
			dst := filepath.Join(d.OutDir, filepath.Base(f.Image))

			err := d.drawFile(src, dst, tracks, f.Frame)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}

			written++
		}(d, f)
	}

	wg.Wait()

	return written, firstErr
}
