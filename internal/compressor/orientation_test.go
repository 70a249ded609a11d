package compressor

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func pixelRow(colors ...color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, len(colors), 1))
	for x, c := range colors {
		img.SetNRGBA(x, 0, c)
	}
	return img
}

var (
	red    = color.NRGBA{R: 255, A: 255}
	blue   = color.NRGBA{B: 255, A: 255}
	green  = color.NRGBA{G: 255, A: 255}
	yellow = color.NRGBA{R: 255, G: 255, A: 255}
)

// quad is a 2x2 image with four distinct corners:
//
//	red   blue
//	green yellow
//
// Every orientation transform maps it to a unique pixel arrangement.
func quad() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, red)
	img.SetNRGBA(1, 0, blue)
	img.SetNRGBA(0, 1, green)
	img.SetNRGBA(1, 1, yellow)
	return img
}

// gridOf reads an image row-major into a flat color slice.
func gridOf(img image.Image) []color.NRGBA {
	b := img.Bounds()
	grid := make([]color.NRGBA, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			grid = append(grid, color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA))
		}
	}
	return grid
}

func sameGrid(a, b []color.NRGBA) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRotate90(t *testing.T) {
	// [red blue] rotated 90 CW becomes a column with red on top.
	src := pixelRow(red, blue)
	dst := rotate90(src)

	if got := dst.Bounds(); got.Dx() != 1 || got.Dy() != 2 {
		t.Fatalf("bounds = %v, want 1x2", got)
	}
	if dst.NRGBAAt(0, 0) != red {
		t.Errorf("top pixel = %v, want red", dst.NRGBAAt(0, 0))
	}
	if dst.NRGBAAt(0, 1) != blue {
		t.Errorf("bottom pixel = %v, want blue", dst.NRGBAAt(0, 1))
	}
}

func TestRotate180(t *testing.T) {
	src := pixelRow(red, blue)
	dst := rotate180(src)

	if dst.NRGBAAt(0, 0) != blue || dst.NRGBAAt(1, 0) != red {
		t.Errorf("rotate180([red blue]) = [%v %v], want [blue red]", dst.NRGBAAt(0, 0), dst.NRGBAAt(1, 0))
	}
}

func TestRotate270(t *testing.T) {
	// [red blue] rotated 270 CW becomes a column with blue on top.
	src := pixelRow(red, blue)
	dst := rotate270(src)

	if got := dst.Bounds(); got.Dx() != 1 || got.Dy() != 2 {
		t.Fatalf("bounds = %v, want 1x2", got)
	}
	if dst.NRGBAAt(0, 0) != blue || dst.NRGBAAt(0, 1) != red {
		t.Errorf("rotate270([red blue]) top/bottom = %v/%v, want blue/red", dst.NRGBAAt(0, 0), dst.NRGBAAt(0, 1))
	}
}

func TestFlips(t *testing.T) {
	src := pixelRow(red, blue)

	h := flipHorizontal(src)
	if h.NRGBAAt(0, 0) != blue || h.NRGBAAt(1, 0) != red {
		t.Error("flipHorizontal did not mirror the row")
	}

	v := flipVertical(src)
	if v.NRGBAAt(0, 0) != red || v.NRGBAAt(1, 0) != blue {
		t.Error("flipVertical of a single row must be a no-op")
	}
}

func TestNormalizeOrientationWithoutMetadata(t *testing.T) {
	src := pixelRow(red, blue)
	out := normalizeOrientation(src, []byte("no exif here"))
	if out != image.Image(src) {
		t.Error("images without metadata must pass through unchanged")
	}
}

// orientationCases lists the expected corrected pixel grid (row-major) for
// every EXIF orientation tag applied to the quad image.
var orientationCases = []struct {
	name   string
	orient int
	wantW  int
	want   []color.NRGBA
}{
	{"2 flip horizontal", orientFlipH, 2, []color.NRGBA{blue, red, yellow, green}},
	{"3 rotate 180", orientRotate180, 2, []color.NRGBA{yellow, green, blue, red}},
	{"4 flip vertical", orientFlipV, 2, []color.NRGBA{green, yellow, red, blue}},
	{"5 transpose", orientTranspose, 2, []color.NRGBA{red, green, blue, yellow}},
	{"6 rotate 90 CW", orientRotate90CW, 2, []color.NRGBA{green, red, yellow, blue}},
	{"7 transverse", orientTransverse, 2, []color.NRGBA{yellow, blue, green, red}},
	{"8 rotate 270 CW", orientRotate270CW, 2, []color.NRGBA{blue, yellow, red, green}},
}

func TestApplyOrientationAllTags(t *testing.T) {
	for _, tt := range orientationCases {
		t.Run(tt.name, func(t *testing.T) {
			out := applyOrientation(quad(), tt.orient)
			if got := out.Bounds().Dx(); got != tt.wantW {
				t.Fatalf("width = %d, want %d", got, tt.wantW)
			}
			if got := gridOf(out); !sameGrid(got, tt.want) {
				t.Errorf("tag %d grid = %v, want %v", tt.orient, got, tt.want)
			}
		})
	}
}

// exifAPP1 builds an APP1 segment holding a big-endian TIFF body whose IFD0
// carries only the orientation tag.
func exifAPP1(orient uint8) []byte {
	tiff := []byte{
		'M', 'M', 0x00, 0x2A, // byte order, TIFF magic
		0x00, 0x00, 0x00, 0x08, // offset to IFD0
		0x00, 0x01, // one entry
		0x01, 0x12, // Orientation
		0x00, 0x03, // SHORT
		0x00, 0x00, 0x00, 0x01, // count
		0x00, orient, 0x00, 0x00, // value + padding
		0x00, 0x00, 0x00, 0x00, // no next IFD
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	segLen := len(payload) + 2
	seg := []byte{0xFF, 0xE1, byte(segLen >> 8), byte(segLen)}
	return append(seg, payload...)
}

// jpegWithOrientation encodes img as JPEG and splices an EXIF APP1 segment
// carrying the orientation tag in right after the SOI marker.
func jpegWithOrientation(t *testing.T, img image.Image, orient uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	base := buf.Bytes()

	out := make([]byte, 0, len(base)+64)
	out = append(out, base[:2]...)
	out = append(out, exifAPP1(orient)...)
	out = append(out, base[2:]...)
	return out
}

func TestReadOrientationFromJPEG(t *testing.T) {
	for _, orient := range []uint8{2, 3, 4, 5, 6, 7, 8} {
		raw := jpegWithOrientation(t, quad(), orient)
		if got := readOrientation(raw); got != int(orient) {
			t.Errorf("readOrientation(tag %d) = %d", orient, got)
		}
	}
}

func TestNormalizeOrientationFromEXIF(t *testing.T) {
	for _, tt := range orientationCases {
		t.Run(tt.name, func(t *testing.T) {
			raw := jpegWithOrientation(t, quad(), uint8(tt.orient))
			out := normalizeOrientation(quad(), raw)
			if got := gridOf(out); !sameGrid(got, tt.want) {
				t.Errorf("tag %d grid = %v, want %v", tt.orient, got, tt.want)
			}
		})
	}
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		name         string
		w, h, maxDim int
		wantW, wantH int
	}{
		{"landscape", 100, 50, 10, 10, 5},
		{"portrait", 50, 100, 10, 5, 10},
		{"already small", 8, 8, 10, 8, 8},
		{"square", 64, 64, 16, 16, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewNRGBA(image.Rect(0, 0, tt.w, tt.h))
			dst := downscale(src, tt.maxDim)
			b := dst.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("downscale(%dx%d, %d) = %dx%d, want %dx%d",
					tt.w, tt.h, tt.maxDim, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}
