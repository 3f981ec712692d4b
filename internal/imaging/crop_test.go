package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/NomanAhmed1999/vatika/internal/domain"
)

func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCropCircleScalesByPixelRatio(t *testing.T) {
	src := solidImage(200, 200, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	out, err := CropCircle(src, domain.CropRegion{X: 50, Y: 50, Width: 100, Height: 100, PixelRatio: 2})
	if err != nil {
		t.Fatalf("CropCircle: %v", err)
	}
	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 200 {
		t.Fatalf("output %dx%d, want 200x200", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestCropCircleDefaultsPixelRatio(t *testing.T) {
	src := solidImage(100, 100, color.RGBA{A: 255})

	out, err := CropCircle(src, domain.CropRegion{X: 0, Y: 0, Width: 60, Height: 60})
	if err != nil {
		t.Fatalf("CropCircle: %v", err)
	}
	if out.Bounds().Dx() != 60 || out.Bounds().Dy() != 60 {
		t.Fatalf("output %dx%d, want 60x60", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestCropCircleMasksCorners(t *testing.T) {
	src := solidImage(100, 100, color.RGBA{R: 255, A: 255})

	out, err := CropCircle(src, domain.CropRegion{X: 0, Y: 0, Width: 100, Height: 100, PixelRatio: 1})
	if err != nil {
		t.Fatalf("CropCircle: %v", err)
	}

	if a := out.RGBAAt(0, 0).A; a != 0 {
		t.Fatalf("corner pixel alpha = %d, want 0", a)
	}
	if a := out.RGBAAt(50, 50).A; a != 255 {
		t.Fatalf("centre pixel alpha = %d, want 255", a)
	}
}

func TestCropCircleInterpolatesWhenUpscaling(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := color.RGBA{A: 255}
			if x >= 2 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			src.SetRGBA(x, y, c)
		}
	}

	out, err := CropCircle(src, domain.CropRegion{X: 0, Y: 0, Width: 4, Height: 4, PixelRatio: 8})
	if err != nil {
		t.Fatalf("CropCircle: %v", err)
	}

	// A smooth resampler blends across the black/white seam; block sampling
	// would leave every pixel at exactly 0 or 255.
	got := out.RGBAAt(15, 16).R
	if got == 0 || got == 255 {
		t.Fatalf("seam pixel R = %d, want an interpolated value", got)
	}
}

func TestCropCircleValidation(t *testing.T) {
	src := solidImage(50, 50, color.RGBA{A: 255})

	if _, err := CropCircle(nil, domain.CropRegion{Width: 10, Height: 10}); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("nil source: err = %v, want ErrEmptyImage", err)
	}
	if _, err := CropCircle(src, domain.CropRegion{Width: 0, Height: 10}); !errors.Is(err, ErrInvalidCrop) {
		t.Fatalf("zero width: err = %v, want ErrInvalidCrop", err)
	}
	if _, err := CropCircle(src, domain.CropRegion{X: 40, Y: 40, Width: 20, Height: 20}); !errors.Is(err, ErrCropOutOfBounds) {
		t.Fatalf("out of bounds: err = %v, want ErrCropOutOfBounds", err)
	}
	if _, err := CropCircle(src, domain.CropRegion{X: -10, Y: 0, Width: 20, Height: 20}); !errors.Is(err, ErrCropOutOfBounds) {
		t.Fatalf("negative origin: err = %v, want ErrCropOutOfBounds", err)
	}
}

func TestFlattenOnWhiteDropsAlpha(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	// (1,1) stays fully transparent.

	out := FlattenOnWhite(img)
	if got := out.RGBAAt(1, 1); got.R != 255 || got.G != 255 || got.B != 255 || got.A != 255 {
		t.Fatalf("transparent pixel flattened to %+v, want white", got)
	}
	if got := out.RGBAAt(0, 0); got.R != 255 || got.G != 0 {
		t.Fatalf("opaque pixel changed to %+v", got)
	}
}
