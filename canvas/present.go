package canvas

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Presenter uploads a canvas' backing store to the GPU and draws it into
// the canvas' display rectangle on the host screen.
type Presenter struct {
	img *ebiten.Image
	buf []byte
}

// Present draws c onto screen, where one logical pixel of the page covers
// scale screen pixels. The GPU image is reallocated only when the backing
// store size changes.
func (p *Presenter) Present(screen *ebiten.Image, c *Canvas, scale float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached || c.dc == nil {
		return
	}

	w, h := c.dc.Width(), c.dc.Height()
	if p.img == nil || p.img.Bounds().Dx() != w || p.img.Bounds().Dy() != h {
		if p.img != nil {
			p.img.Deallocate()
		}
		p.img = ebiten.NewImage(w, h)
	}

	p.buf = premultiply(p.buf, c.dc.ResizeTarget().Data())
	p.img.WritePixels(p.buf)

	op := &ebiten.DrawImageOptions{}
	if scale <= 0 {
		scale = 1
	}
	op.GeoM.Scale(c.w*scale/float64(w), c.h*scale/float64(h))
	op.GeoM.Translate(c.x*scale, c.y*scale)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(p.img, op)
}

// Release frees the GPU image.
func (p *Presenter) Release() {
	if p.img != nil {
		p.img.Deallocate()
		p.img = nil
	}
	p.buf = nil
}

// premultiply converts straight-alpha RGBA into the premultiplied layout
// WritePixels expects, reusing dst when it is large enough.
func premultiply(dst, src []byte) []byte {
	if cap(dst) < len(src) {
		dst = make([]byte, len(src))
	}
	dst = dst[:len(src)]
	for i := 0; i+3 < len(src); i += 4 {
		a := uint16(src[i+3])
		dst[i] = byte(uint16(src[i]) * a / 255)
		dst[i+1] = byte(uint16(src[i+1]) * a / 255)
		dst[i+2] = byte(uint16(src[i+2]) * a / 255)
		dst[i+3] = src[i+3]
	}
	return dst
}
