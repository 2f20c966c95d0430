package decoder

import (
	errors "golang.org/x/xerrors"
)

// PlanarConverter copies YUV420P frames into a packed Picture, dropping any
// row padding. It is used for codecs that already output I420.
type PlanarConverter struct {
	width  int
	height int
}

func NewPlanarConverter(width, height int, format PixelFormat) (*PlanarConverter, error) {
	if format != PixelFormatYUV420P {
		return nil, errors.Errorf("planar converter: pixel format %d: %w", format, ErrConvert)
	}
	return &PlanarConverter{width: width, height: height}, nil
}

func (c *PlanarConverter) Convert(dst *Picture, src *Frame) error {
	if src.Width != c.width || src.Height != c.height {
		return errors.Errorf("frame %dx%d on %dx%d converter: %w",
			src.Width, src.Height, c.width, c.height, ErrConvert)
	}
	if dst.Width != c.width || dst.Height != c.height || len(dst.Data) != PictureSize(c.width, c.height) {
		return errors.Errorf("destination picture size mismatch: %w", ErrConvert)
	}

	cw, ch := chromaSize(c.width, c.height)
	y, u, v := dst.Planes()
	if err := copyPlane(y, src.Planes[0], c.width, c.height, src.Strides[0]); err != nil {
		return err
	}
	if err := copyPlane(u, src.Planes[1], cw, ch, src.Strides[1]); err != nil {
		return err
	}
	return copyPlane(v, src.Planes[2], cw, ch, src.Strides[2])
}

func (c *PlanarConverter) Close() error {
	return nil
}

func copyPlane(dst, src []byte, width, height, stride int) error {
	if stride < width || len(src) < (height-1)*stride+width {
		return errors.Errorf("plane %dx%d stride %d has %d bytes: %w",
			width, height, stride, len(src), ErrConvert)
	}
	for row := 0; row < height; row++ {
		copy(dst[row*width:(row+1)*width], src[row*stride:row*stride+width])
	}
	return nil
}
