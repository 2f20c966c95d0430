// Copyright 2019 Lanikai Labs. All rights reserved.

// Package color adapts decoded I420 pictures to the standard library's image
// types.
package color

import (
	"image"

	"github.com/lanikai/avconsumer/internal/decoder"
)

// YCbCr returns a 4:2:0 image view of pic. The view aliases pic.Data.
func YCbCr(pic *decoder.Picture) *image.YCbCr {
	y, cb, cr := pic.Planes()
	return &image.YCbCr{
		Y:              y,
		Cb:             cb,
		Cr:             cr,
		YStride:        pic.Width,
		CStride:        (pic.Width + 1) / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, pic.Width, pic.Height),
	}
}

// FromYCbCr copies a 4:2:0 image into a new packed picture.
func FromYCbCr(img *image.YCbCr) *decoder.Picture {
	r := img.Rect
	pic := decoder.NewPicture(r.Dx(), r.Dy())
	y, cb, cr := pic.Planes()
	cw, ch := (r.Dx()+1)/2, (r.Dy()+1)/2
	for row := 0; row < r.Dy(); row++ {
		off := img.YOffset(r.Min.X, r.Min.Y+row)
		copy(y[row*r.Dx():(row+1)*r.Dx()], img.Y[off:off+r.Dx()])
	}
	for row := 0; row < ch; row++ {
		off := img.COffset(r.Min.X, r.Min.Y+2*row)
		copy(cb[row*cw:(row+1)*cw], img.Cb[off:off+cw])
		copy(cr[row*cw:(row+1)*cw], img.Cr[off:off+cw])
	}
	return pic
}
