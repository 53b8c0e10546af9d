package overlay

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/Carmen-Shannon/oxy-resolve/common"
)

// TextAlignment positions text inside its quad.
type TextAlignment int

const (
	AlignTopLeft TextAlignment = iota
	AlignTop
	AlignTopRight
	AlignLeft
	AlignCenter
	AlignRight
	AlignBottomLeft
	AlignBottom
	AlignBottomRight
)

// DefaultFontSize is the pixel size of the default text style.
const DefaultFontSize = 16

// TextStyle is a font face at one size.
type TextStyle struct {
	face font.Face
	size float64
}

// NewTextStyle parses an OpenType or TrueType font and creates a face at size pixels.
//
// Parameters:
//   - data: the font file contents
//   - size: the size in pixels
//
// Returns:
//   - *TextStyle: the style
//   - error: an error if the font could not be parsed
func NewTextStyle(data []byte, size float64) (*TextStyle, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("overlay: failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("overlay: failed to create font face: %w", err)
	}
	return &TextStyle{face: face, size: size}, nil
}

var (
	defaultStyle     *TextStyle
	defaultStyleOnce sync.Once
)

// DefaultTextStyle returns the Go Regular face at DefaultFontSize. It is created on first use.
func DefaultTextStyle() *TextStyle {
	defaultStyleOnce.Do(func() {
		style, err := NewTextStyle(goregular.TTF, DefaultFontSize)
		if err != nil {
			panic(err)
		}
		defaultStyle = style
	})
	return defaultStyle
}

// Size returns the face size in pixels.
func (s *TextStyle) Size() float64 {
	return s.size
}

// LineHeight returns the distance between baselines in pixels.
func (s *TextStyle) LineHeight() float32 {
	return fixedToFloat(s.face.Metrics().Height)
}

// StringWidth returns the advance of text in pixels.
func (s *TextStyle) StringWidth(text string) float32 {
	return fixedToFloat(font.MeasureString(s.face, text))
}

// AlignText returns the top left corner of the text box for text placed inside the quad mins..maxs.
//
// Parameters:
//   - mins: the top left of the quad
//   - maxs: the bottom right of the quad
//   - align: the alignment
//   - text: the text
//
// Returns:
//   - [2]float32: the top left of the text box
func (s *TextStyle) AlignText(mins, maxs [2]float32, align TextAlignment, text string) [2]float32 {
	w, h := s.StringWidth(text), s.LineHeight()
	x, y := mins[0], mins[1]
	switch align {
	case AlignTop, AlignCenter, AlignBottom:
		x = (mins[0] + maxs[0] - w) * 0.5
	case AlignTopRight, AlignRight, AlignBottomRight:
		x = maxs[0] - w
	}
	switch align {
	case AlignLeft, AlignCenter, AlignRight:
		y = (mins[1] + maxs[1] - h) * 0.5
	case AlignBottomLeft, AlignBottom, AlignBottomRight:
		y = maxs[1] - h
	}
	return [2]float32{x, y}
}

// rasterize draws text into a coverage image one line high. Coverage is replicated into every channel.
func (s *TextStyle) rasterize(text string) common.TextureStagingData {
	m := s.face.Metrics()
	width := max(font.MeasureString(s.face, text).Ceil(), 1)
	height := max(m.Height.Ceil(), 1)

	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: s.face,
		Dot:  fixed.Point26_6{X: 0, Y: m.Ascent},
	}
	d.DrawString(text)

	pixels := make([]byte, width*height*4)
	for i, a := range mask.Pix {
		pixels[i*4+0] = a
		pixels[i*4+1] = a
		pixels[i*4+2] = a
		pixels[i*4+3] = a
	}
	return common.TextureStagingData{Pixels: pixels, Width: uint32(width), Height: uint32(height)}
}

func fixedToFloat(x fixed.Int26_6) float32 {
	return float32(x) / 64
}
