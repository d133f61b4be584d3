package service

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Letterbox records how an image was fitted into the model input square,
// so output boxes can be mapped back to original pixel space.
type Letterbox struct {
	Scale float32
	PadX  float32
	PadY  float32
}

// Preprocess letterboxes the image onto a 640x640 gray canvas and emits
// CHW float32 data in [0,1].
func Preprocess(img image.Image) ([]float32, Letterbox) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := math.Min(float64(InputSize)/float64(w), float64(InputSize)/float64(h))
	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))

	resized := imaging.Resize(img, newW, newH, imaging.Lanczos)
	canvas := imaging.New(InputSize, InputSize, color.NRGBA{114, 114, 114, 255})
	padX := (InputSize - newW) / 2
	padY := (InputSize - newH) / 2
	fitted := imaging.Paste(canvas, resized, image.Pt(padX, padY))

	out := make([]float32, 3*InputSize*InputSize)
	rBase := 0
	gBase := InputSize * InputSize
	bBase := 2 * InputSize * InputSize

	for y := 0; y < InputSize; y++ {
		for x := 0; x < InputSize; x++ {
			r, g, b, _ := fitted.At(x, y).RGBA()
			out[rBase] = float32(r) / 65535.0
			out[gBase] = float32(g) / 65535.0
			out[bBase] = float32(b) / 65535.0

			rBase++
			gBase++
			bBase++
		}
	}

	return out, Letterbox{
		Scale: float32(scale),
		PadX:  float32(padX),
		PadY:  float32(padY),
	}
}
