package system

import (
	"image"
	"sync"
)

// PlanePool recycles grayscale working planes. Edge detection allocates
// several page-sized planes per page at identical bounds, so reuse keeps
// the garbage collector out of the per-page loop.
type PlanePool struct {
	pools map[string]*sync.Pool
	mu    sync.RWMutex
}

var planes = &PlanePool{
	pools: make(map[string]*sync.Pool),
}

// GetPlane returns a zeroed *image.Gray with the given bounds, reusing a
// released plane when one is available.
func GetPlane(r image.Rectangle) *image.Gray {
	return planes.Get(r)
}

// PutPlane releases a plane for reuse. nil is ignored.
func PutPlane(img *image.Gray) {
	planes.Put(img)
}

func (p *PlanePool) Get(r image.Rectangle) *image.Gray {
	key := r.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewGray(r)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	img := pool.Get().(*image.Gray)
	// Callers leave thresholded maps and dilation borders untouched and
	// expect those pixels to read zero.
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	return img
}

func (p *PlanePool) Put(img *image.Gray) {
	if img == nil {
		return
	}
	key := img.Rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
