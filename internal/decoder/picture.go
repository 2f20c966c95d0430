package decoder

// Output envelope. Anything larger is treated as corrupted decoder output.
const (
	MaxWidth  = 8192
	MaxHeight = 4320
)

// Picture is a decoded frame in packed planar YUV 4:2:0 (I420) layout:
// a Width*Height Y plane followed by U and V planes of
// ceil(Width/2)*ceil(Height/2) bytes each.
type Picture struct {
	Width  int
	Height int
	Data   []byte
}

func chromaSize(width, height int) (w, h int) {
	return (width + 1) / 2, (height + 1) / 2
}

// PictureSize returns the byte length of an I420 picture.
func PictureSize(width, height int) int {
	cw, ch := chromaSize(width, height)
	return width*height + 2*cw*ch
}

// NewPicture allocates a zeroed picture of the given size.
func NewPicture(width, height int) *Picture {
	return &Picture{
		Width:  width,
		Height: height,
		Data:   make([]byte, PictureSize(width, height)),
	}
}

// Planes returns the Y, U and V planes. They alias p.Data.
func (p *Picture) Planes() (y, u, v []byte) {
	ySize := p.Width * p.Height
	cw, ch := chromaSize(p.Width, p.Height)
	cSize := cw * ch
	return p.Data[:ySize], p.Data[ySize : ySize+cSize], p.Data[ySize+cSize : ySize+2*cSize]
}

// Valid reports whether the buffer length matches the dimensions and the
// dimensions are inside the output envelope.
func (p *Picture) Valid() bool {
	return p != nil &&
		p.Width > 0 && p.Height > 0 &&
		p.Width <= MaxWidth && p.Height <= MaxHeight &&
		len(p.Data) == PictureSize(p.Width, p.Height)
}

// Clone returns a deep copy.
func (p *Picture) Clone() *Picture {
	return &Picture{
		Width:  p.Width,
		Height: p.Height,
		Data:   append([]byte(nil), p.Data...),
	}
}

// CopyFrom overwrites p with src, reusing p's buffer when it is large enough.
func (p *Picture) CopyFrom(src *Picture) {
	p.Width = src.Width
	p.Height = src.Height
	if cap(p.Data) >= len(src.Data) {
		p.Data = p.Data[:len(src.Data)]
	} else {
		p.Data = make([]byte, len(src.Data))
	}
	copy(p.Data, src.Data)
}
