package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/NomanAhmed1999/vatika/internal/domain"
)

const (
	compositionWidth  = 1080
	compositionHeight = 1920

	photoDiameter = 640
	photoCenterY  = 760
	nameBaselineY = 1320
	captionY      = 1420
)

var errMissingConcern = errors.New("imaging: hair concern is required for composition")

// CompositionInput carries everything needed to render the final bottle artwork.
type CompositionInput struct {
	UserName   string
	BestieName string
	Concern    domain.HairConcern
	Photo      image.Image
}

// Compose renders the shareable bottle artwork: the concern's campaign colour as
// the backdrop, the circular photo, and both names beneath it.
func Compose(input CompositionInput) (*image.RGBA, error) {
	if !input.Concern.Valid() {
		return nil, errMissingConcern
	}

	background, err := parseHexColor(input.Concern.BackgroundColor())
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, compositionWidth, compositionHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	if input.Photo != nil {
		drawPhoto(canvas, input.Photo)
	}

	names := formatNames(input.UserName, input.BestieName)
	if names != "" {
		drawCenteredText(canvas, names, nameBaselineY, color.White, 6)
	}
	drawCenteredText(canvas, "BESTIES FOREVER", captionY, color.White, 3)

	return canvas, nil
}

func drawPhoto(canvas *image.RGBA, photo image.Image) {
	bounds := photo.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	if side <= 0 {
		return
	}

	target := image.Rect(
		(compositionWidth-photoDiameter)/2,
		photoCenterY-photoDiameter/2,
		(compositionWidth+photoDiameter)/2,
		photoCenterY+photoDiameter/2,
	)

	square := image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+side, bounds.Min.Y+side)
	// Over, not Src: cropped photos carry a transparent ring outside the circle
	// and the backdrop must show through it.
	xdraw.CatmullRom.Scale(canvas, target, photo, square, xdraw.Over, nil)
}

func formatNames(userName, bestieName string) string {
	userName = strings.TrimSpace(userName)
	bestieName = strings.TrimSpace(bestieName)
	switch {
	case userName == "" && bestieName == "":
		return ""
	case userName == "":
		return bestieName
	case bestieName == "":
		return userName
	default:
		return userName + " & " + bestieName
	}
}

// drawCenteredText renders the string scaled up from the base bitmap face by the
// given integer factor, centred horizontally around the baseline row.
func drawCenteredText(canvas *image.RGBA, text string, baseline int, col color.Color, scale int) {
	if scale <= 0 {
		scale = 1
	}
	face := basicfont.Face7x13

	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	// Render at base size first, then scale onto the canvas.
	buf := image.NewRGBA(image.Rect(0, 0, width, height))
	drawer := &font.Drawer{
		Dst:  buf,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	drawer.DrawString(text)

	outW := width * scale
	startX := (compositionWidth - outW) / 2
	startY := baseline - height*scale/2

	for y := 0; y < height*scale; y++ {
		for x := 0; x < outW; x++ {
			c := buf.RGBAAt(x/scale, y/scale)
			if c.A == 0 {
				continue
			}
			canvas.SetRGBA(startX+x, startY+y, c)
		}
	}
}

func parseHexColor(value string) (color.RGBA, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(value) != 6 {
		return color.RGBA{}, fmt.Errorf("imaging: invalid hex colour %q", value)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(value, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("imaging: invalid hex colour %q: %w", value, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
