package radar

import (
	"image"
	"image/color/palette"
	"image/gif"
	"io"
	"time"

	"golang.org/x/image/draw"
)

// EncodeLoop writes frames as an infinitely looping GIF, each frame shown for delay.
func EncodeLoop(w io.Writer, frames []*image.RGBA, delay time.Duration) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}

	// GIF delays are expressed in hundredths of a second.
	centis := int(delay / (10 * time.Millisecond))
	if centis <= 0 {
		centis = 1
	}

	anim := &gif.GIF{
		Image:     make([]*image.Paletted, 0, len(frames)),
		Delay:     make([]int, 0, len(frames)),
		LoopCount: 0,
	}

	for _, f := range frames {
		b := f.Bounds()
		pm := image.NewPaletted(b, palette.Plan9)
		draw.FloydSteinberg.Draw(pm, b, f, b.Min)

		anim.Image = append(anim.Image, pm)
		anim.Delay = append(anim.Delay, centis)
	}

	return gif.EncodeAll(w, anim)
}
