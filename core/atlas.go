package core

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// BillboardVertex is one corner of a glyph quad. Anchor is the label's world
// position; Offset is the corner displacement in device pixels, applied in
// clip space by the shader so the label always faces the camera at constant
// screen size.
type BillboardVertex struct {
	Anchor [3]float32
	Offset [2]float32
	UV     [2]float32
	Color  [4]float32
}

type GlyphInfo struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// GlyphAtlas rasterizes the printable ASCII range of a face into a single
// alpha texture and records per-glyph placement.
type GlyphAtlas struct {
	Image  *image.Alpha
	Glyphs map[rune]GlyphInfo
	Face   font.Face
}

const atlasSize = 512

// NewGlyphAtlas builds an atlas from raw TTF/OTF bytes.
func NewGlyphAtlas(ttf []byte, fontSize float64) (*GlyphAtlas, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}

	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]GlyphInfo)

	x, y := 2, 2
	rowHeight := 0

	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w := mask.Bounds().Dx()
		h := mask.Bounds().Dy()

		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= atlasSize {
			break
		}

		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)

		glyphs[r] = GlyphInfo{
			UVMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			UVMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			Adv:   float32(adv) / 64.0, // fixed 26.6 to float
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	return &GlyphAtlas{
		Image:  atlas,
		Glyphs: glyphs,
		Face:   face,
	}, nil
}

// NewDefaultGlyphAtlas builds an atlas from the embedded Go Regular face.
func NewDefaultGlyphAtlas(fontSize float64) (*GlyphAtlas, error) {
	return NewGlyphAtlas(goregular.TTF, fontSize)
}

// NewGlyphAtlasFromFile builds an atlas from a font file on disk.
func NewGlyphAtlasFromFile(path string, fontSize float64) (*GlyphAtlas, error) {
	ttf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	return NewGlyphAtlas(ttf, fontSize)
}

// BuildBillboard emits two triangles per glyph, centered on the label's
// anchor. Offsets are in device pixels with Y growing upward.
func (a *GlyphAtlas) BuildBillboard(b *Billboard) []BillboardVertex {
	scale := b.ScalePx
	if scale <= 0 {
		scale = 1
	}
	totalW, totalH := a.MeasureText(b.Text, scale)

	anchor := [3]float32{b.Position.X(), b.Position.Y(), b.Position.Z()}
	color := [4]float32{b.Color.X(), b.Color.Y(), b.Color.Z(), b.Color.W()}

	metrics := a.Face.Metrics()
	ascent := float32(metrics.Ascent.Ceil()) * scale
	lineHeight := float32(metrics.Height.Ceil()) * scale

	vertices := make([]BillboardVertex, 0, len(b.Text)*6)

	startX := -totalW / 2
	posX := startX
	// Pen starts at the top of the centered block, baseline one ascent down.
	posY := totalH/2 - ascent

	for _, r := range b.Text {
		if r == '\n' {
			posX = startX
			posY -= lineHeight
			continue
		}
		g, ok := a.Glyphs[r]
		if !ok {
			continue
		}

		x0 := posX + g.Off[0]*scale
		y0 := posY - g.Off[1]*scale
		x1 := x0 + g.Size[0]*scale
		y1 := y0 - g.Size[1]*scale

		quad := func(ox, oy, u, v float32) BillboardVertex {
			return BillboardVertex{
				Anchor: anchor,
				Offset: [2]float32{ox, oy},
				UV:     [2]float32{u, v},
				Color:  color,
			}
		}

		vertices = append(vertices,
			quad(x0, y0, g.UVMin[0], g.UVMin[1]),
			quad(x1, y0, g.UVMax[0], g.UVMin[1]),
			quad(x0, y1, g.UVMin[0], g.UVMax[1]),

			quad(x1, y0, g.UVMax[0], g.UVMin[1]),
			quad(x1, y1, g.UVMax[0], g.UVMax[1]),
			quad(x0, y1, g.UVMin[0], g.UVMax[1]),
		)

		posX += g.Adv * scale
	}

	return vertices
}

// MeasureText returns the pixel width and height of a (possibly multi-line)
// string at the given scale.
func (a *GlyphAtlas) MeasureText(text string, scale float32) (float32, float32) {
	if a == nil {
		return 0, 0
	}

	metrics := a.Face.Metrics()
	lineHeight := float32(metrics.Height.Ceil())

	maxW := float32(0)
	currentW := float32(0)
	lines := 1

	for _, r := range text {
		if r == '\n' {
			if currentW > maxW {
				maxW = currentW
			}
			currentW = 0
			lines++
			continue
		}
		g, ok := a.Glyphs[r]
		if !ok {
			continue
		}
		currentW += g.Adv * scale
	}
	if currentW > maxW {
		maxW = currentW
	}

	return maxW, lineHeight * scale * float32(lines)
}

// LineHeight returns the scaled line height of the face.
func (a *GlyphAtlas) LineHeight(scale float32) float32 {
	if a == nil {
		return 0
	}
	metrics := a.Face.Metrics()
	return float32(metrics.Height.Ceil()) * scale
}
