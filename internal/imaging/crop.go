package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/NomanAhmed1999/vatika/internal/domain"
)

var (
	// ErrInvalidCrop is returned when the crop region does not describe a positive area.
	ErrInvalidCrop = errors.New("imaging: invalid crop region")
	// ErrCropOutOfBounds is returned when the crop region falls outside the source image.
	ErrCropOutOfBounds = errors.New("imaging: crop region out of bounds")
)

// CropCircle extracts the crop region from the source, scales it by the device
// pixel ratio, and masks it to a circle on a transparent background. The output
// is always square: region width and height times the pixel ratio.
func CropCircle(src image.Image, region domain.CropRegion) (*image.RGBA, error) {
	if src == nil {
		return nil, ErrEmptyImage
	}
	if region.Width <= 0 || region.Height <= 0 {
		return nil, ErrInvalidCrop
	}

	ratio := region.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}

	bounds := src.Bounds()
	cropRect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	if !cropRect.In(bounds) {
		return nil, fmt.Errorf("%w: %v not within %v", ErrCropOutOfBounds, cropRect, bounds)
	}

	outW := int(math.Round(float64(region.Width) * ratio))
	outH := int(math.Round(float64(region.Height) * ratio))
	if outW <= 0 || outH <= 0 {
		return nil, ErrInvalidCrop
	}

	scaled := scaleRegion(src, cropRect, outW, outH)
	return maskCircle(scaled), nil
}

// scaleRegion resamples the crop rectangle to the target dimensions with a
// Catmull-Rom kernel, so upscaling at device pixel ratios of 2-3 stays smooth.
func scaleRegion(src image.Image, cropRect image.Rectangle, outW, outH int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	xdraw.CatmullRom.Scale(out, out.Bounds(), src, cropRect, xdraw.Src, nil)
	return out
}

// maskCircle zeroes every pixel outside the inscribed circle.
func maskCircle(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	cx := float64(bounds.Dx()) / 2
	cy := float64(bounds.Dy()) / 2
	radius := math.Min(cx, cy)

	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, image.Transparent, image.Point{}, draw.Src)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		dy := float64(y-bounds.Min.Y) + 0.5 - cy
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dx := float64(x-bounds.Min.X) + 0.5 - cx
			if dx*dx+dy*dy <= radius*radius {
				out.Set(x, y, img.At(x, y))
			}
		}
	}
	return out
}

// FlattenOnWhite composites the image over a white background, dropping alpha.
// JPEG output has no transparency, so circular crops are flattened before encoding.
func FlattenOnWhite(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, bounds, img, bounds.Min, draw.Over)
	return out
}
