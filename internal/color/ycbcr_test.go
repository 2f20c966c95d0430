package color

import (
	"image"
	"testing"

	"github.com/lanikai/avconsumer/internal/decoder"
)

func TestYCbCrView(t *testing.T) {
	pic := decoder.NewPicture(1280, 720)
	for i := range pic.Data {
		pic.Data[i] = byte(i)
	}

	img := YCbCr(pic)
	if img.Bounds() != image.Rect(0, 0, 1280, 720) {
		t.Fatalf("bounds %v", img.Bounds())
	}

	// Verify luma
	for row := 0; row < 720; row += 37 {
		for col := 0; col < 1280; col += 53 {
			if img.YCbCrAt(col, row).Y != byte(row*1280+col) {
				t.Fatalf("luma at %d,%d", col, row)
			}
		}
	}

	// Verify chroma
	ySize := 1280 * 720
	cSize := 640 * 360
	for row := 0; row < 720; row += 41 {
		for col := 0; col < 1280; col += 29 {
			c := img.YCbCrAt(col, row)
			i := (row/2)*640 + col/2
			if c.Cb != byte(ySize+i) || c.Cr != byte(ySize+cSize+i) {
				t.Fatalf("chroma at %d,%d", col, row)
			}
		}
	}
}

func TestFromYCbCrRoundTrip(t *testing.T) {
	src := image.NewYCbCr(image.Rect(0, 0, 7, 5), image.YCbCrSubsampleRatio420)
	for i := range src.Y {
		src.Y[i] = byte(3 * i)
	}
	for i := range src.Cb {
		src.Cb[i] = byte(100 + i)
		src.Cr[i] = byte(200 + i)
	}

	pic := FromYCbCr(src)
	if !pic.Valid() {
		t.Fatal("invalid picture")
	}
	img := YCbCr(pic)
	for y := 0; y < 5; y++ {
		for x := 0; x < 7; x++ {
			if img.YCbCrAt(x, y) != src.YCbCrAt(x, y) {
				t.Fatalf("pixel %d,%d: got %v want %v", x, y, img.YCbCrAt(x, y), src.YCbCrAt(x, y))
			}
		}
	}
}
