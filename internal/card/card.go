// Package card renders shareable PNG weather cards.
package card

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lox/agroconnect/internal/models"
)

// Width and Height are the Open Graph image dimensions.
const (
	Width  = 1200
	Height = 630

	scale = 3
)

type palette struct {
	top, bottom color.RGBA
}

var palettes = map[models.RiskLevel]palette{
	models.RiskLow:    {top: color.RGBA{34, 110, 60, 255}, bottom: color.RGBA{14, 50, 28, 255}},
	models.RiskMedium: {top: color.RGBA{180, 120, 20, 255}, bottom: color.RGBA{80, 50, 10, 255}},
	models.RiskHigh:   {top: color.RGBA{170, 40, 35, 255}, bottom: color.RGBA{70, 15, 15, 255}},
}

// Render draws the snapshot and its insight onto a PNG card.
func Render(s models.WeatherSnapshot, in models.Insight) ([]byte, error) {
	// Text is laid out on a small canvas and scaled up so the bitmap font
	// stays legible.
	small := image.NewRGBA(image.Rect(0, 0, Width/scale, Height/scale))
	drawGradient(small, paletteFor(in.Risk))

	white := color.RGBA{255, 255, 255, 255}
	light := color.RGBA{220, 220, 220, 255}

	drawText(small, fmt.Sprintf("%.0f°C  %s", s.TempC, s.Condition.Text), 16, 30, white)
	drawText(small, fmt.Sprintf("Humidity %.0f%%  Wind %.0f km/h  Rain %.1f mm", s.Humidity, s.WindKPH, s.PrecipMM), 16, 50, light)
	drawText(small, "Risk: "+strings.ToUpper(string(in.Risk)), 16, 80, white)

	y := 100
	for _, line := range wrap(in.Recommendation, 52) {
		drawText(small, line, 16, y, light)
		y += 15
	}
	for i, a := range in.Actions {
		if i == 3 {
			break
		}
		drawText(small, "- "+a, 16, y+8, light)
		y += 15
	}

	drawText(small, "AgroConnect", 16, Height/scale-12, light)

	dst := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), small, small.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

func paletteFor(r models.RiskLevel) palette {
	if p, ok := palettes[r]; ok {
		return p
	}
	return palettes[models.RiskLow]
}

func drawGradient(img *image.RGBA, p palette) {
	b := img.Bounds()
	h := float64(b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		t := float64(y-b.Min.Y) / h
		c := color.RGBA{
			R: lerp(p.top.R, p.bottom.R, t),
			G: lerp(p.top.G, p.bottom.G, t),
			B: lerp(p.top.B, p.bottom.B, t),
			A: 255,
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

func drawText(img *image.RGBA, text string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// wrap splits text into lines of at most width runes, breaking on spaces.
func wrap(text string, width int) []string {
	var lines []string
	var line string
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len([]rune(line))+1+len([]rune(word)) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
