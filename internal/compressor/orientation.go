package compressor

import (
	"bytes"
	"image"
	stddraw "image/draw"

	"github.com/evanoberholster/imagemeta"
	"golang.org/x/image/draw"
)

// EXIF orientation tag values.
const (
	orientNormal      = 1
	orientFlipH       = 2
	orientRotate180   = 3
	orientFlipV       = 4
	orientTranspose   = 5 // transpose across the main diagonal
	orientRotate90CW  = 6
	orientTransverse  = 7 // transpose across the anti-diagonal
	orientRotate270CW = 8
)

// normalizeOrientation rotates/flips img so it displays upright regardless of
// the EXIF orientation tag in the original bytes. Pixel content is only
// transformed, never scaled. Inputs without usable metadata pass through.
func normalizeOrientation(img image.Image, raw []byte) image.Image {
	orient := readOrientation(raw)
	if orient <= orientNormal || orient > orientRotate270CW {
		return img
	}
	return applyOrientation(toNRGBA(img), orient)
}

// applyOrientation undoes the stored-to-display transform named by the EXIF
// orientation tag. Tags 5 and 7 are the diagonal mirrors: the main-diagonal
// transpose is rotate 90 CW then flip, the anti-diagonal one rotate 270 CW
// then flip.
func applyOrientation(src *image.NRGBA, orient int) image.Image {
	switch orient {
	case orientFlipH:
		return flipHorizontal(src)
	case orientRotate180:
		return rotate180(src)
	case orientFlipV:
		return flipVertical(src)
	case orientTranspose:
		return flipHorizontal(rotate90(src))
	case orientRotate90CW:
		return rotate90(src)
	case orientTransverse:
		return flipHorizontal(rotate270(src))
	case orientRotate270CW:
		return rotate270(src)
	}
	return src
}

// readOrientation extracts the EXIF orientation tag from the encoded image.
// Missing or unreadable metadata yields the normal orientation.
func readOrientation(raw []byte) int {
	exifData, err := imagemeta.Decode(bytes.NewReader(raw))
	if err != nil {
		return orientNormal
	}
	return int(uint8(exifData.Orientation))
}

// downscale resizes img so neither dimension exceeds maxDimension,
// preserving aspect ratio. Images already within bounds pass through.
func downscale(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDimension && h <= maxDimension {
		return img
	}

	var newW, newH int
	if w > h {
		newW = maxDimension
		newH = int(float64(h) * float64(maxDimension) / float64(w))
	} else {
		newH = maxDimension
		newW = int(float64(w) * float64(maxDimension) / float64(h))
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	resized := image.NewNRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Bounds().Min == image.Pt(0, 0) {
		return nrgba
	}
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	stddraw.Draw(dst, dst.Bounds(), img, bounds.Min, stddraw.Src)
	return dst
}

func rotate90(src *image.NRGBA) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			copyPixel(dst, h-1-y, x, src, x, y)
		}
	}
	return dst
}

func rotate180(src *image.NRGBA) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			copyPixel(dst, w-1-x, h-1-y, src, x, y)
		}
	}
	return dst
}

func rotate270(src *image.NRGBA) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			copyPixel(dst, y, w-1-x, src, x, y)
		}
	}
	return dst
}

func flipHorizontal(src *image.NRGBA) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			copyPixel(dst, w-1-x, y, src, x, y)
		}
	}
	return dst
}

func flipVertical(src *image.NRGBA) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			copyPixel(dst, x, h-1-y, src, x, y)
		}
	}
	return dst
}

func copyPixel(dst *image.NRGBA, dx, dy int, src *image.NRGBA, sx, sy int) {
	d := dst.PixOffset(dx, dy)
	s := src.PixOffset(sx, sy)
	copy(dst.Pix[d:d+4], src.Pix[s:s+4])
}
