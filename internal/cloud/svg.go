package cloud

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"
	"unicode/utf8"
)

const svgContentType = "image/svg+xml"

var palette = []string{"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b", "#e377c2", "#17becf"}

// SVGRenderer lays terms out on an Archimedean spiral and writes an SVG
// document. Layout is deterministic for a given mapping.
type SVGRenderer struct {
	Width      int
	Height     int
	MinFont    float64
	MaxFont    float64
	Background string
}

func NewSVGRenderer(width, height int, minFont, maxFont float64) *SVGRenderer {
	if minFont <= 0 {
		minFont = 12
	}
	if maxFont < minFont {
		maxFont = minFont
	}
	return &SVGRenderer{
		Width:      width,
		Height:     height,
		MinFont:    minFont,
		MaxFont:    maxFont,
		Background: "white",
	}
}

func (r *SVGRenderer) Name() string { return "svg" }

// ContentType is the MIME type of rendered output.
func (r *SVGRenderer) ContentType() string { return svgContentType }

func (r *SVGRenderer) Available() error {
	if r.Width <= 0 || r.Height <= 0 {
		return unavailable(fmt.Sprintf("invalid canvas %dx%d", r.Width, r.Height))
	}
	return nil
}

type box struct {
	x, y, w, h float64
}

func (b box) overlaps(o box) bool {
	return b.x < o.x+o.w && o.x < b.x+b.w && b.y < o.y+o.h && o.y < b.y+b.h
}

// Placement is a positioned term in the cloud.
type Placement struct {
	Term     string
	Weight   float64
	FontSize float64
	X, Y     float64
	Color    string
}

// Layout positions every term on the canvas, heaviest first. A term that
// finds no free spot at its weighted size is retried at smaller sizes down
// to MinFont; only a term wider or taller than the canvas at MinFont is
// left out.
func (r *SVGRenderer) Layout(weights map[string]float64) []Placement {
	entries := ranked(weights)
	if len(entries) == 0 {
		return nil
	}
	hi, lo := entries[0].weight, entries[len(entries)-1].weight

	var placed []box
	var out []Placement
	for i, e := range entries {
		size := scale(e.weight, lo, hi, r.MinFont, r.MaxFont)
		for {
			if b, ok := r.place(e.term, size, placed); ok {
				placed = append(placed, b)
				out = append(out, Placement{
					Term:     e.term,
					Weight:   e.weight,
					FontSize: size,
					X:        b.x,
					// text y is the baseline
					Y:     b.y + 0.8*b.h,
					Color: palette[i%len(palette)],
				})
				break
			}
			if size <= r.MinFont {
				break
			}
			size = math.Max(r.MinFont, size*fontShrink)
		}
	}
	return out
}

const (
	fontShrink = 0.9
	// spiralStep is the distance, in pixels, between probed positions along
	// the spiral; turns are 2*pi*spiralGrowth apart.
	spiralStep   = 2.0
	spiralGrowth = 2.0
)

// place walks an Archimedean spiral out from the canvas centre and returns
// the first box for term at size that stays on the canvas and overlaps
// nothing already placed.
func (r *SVGRenderer) place(term string, size float64, placed []box) (box, bool) {
	w := 0.6 * size * float64(utf8.RuneCountInString(term))
	h := size
	width, height := float64(r.Width), float64(r.Height)
	if w > width || h > height {
		return box{}, false
	}

	cx, cy := width/2, height/2
	maxRadius := math.Hypot(cx, cy) + spiralStep
	for theta := 0.0; ; {
		radius := spiralGrowth * theta
		if radius > maxRadius {
			return box{}, false
		}
		x := cx + radius*math.Cos(theta) - w/2
		y := cy + radius*math.Sin(theta) - h/2
		if x >= 0 && y >= 0 && x+w <= width && y+h <= height {
			candidate := box{x: x, y: y, w: w, h: h}
			if !collides(candidate, placed) {
				return candidate, true
			}
		}
		// constant arc length between probes
		theta += math.Min(0.5, spiralStep/math.Max(radius, 1))
	}
}

func collides(b box, placed []box) bool {
	for _, p := range placed {
		if b.overlaps(p) {
			return true
		}
	}
	return false
}

func (r *SVGRenderer) Render(w io.Writer, weights map[string]float64) error {
	if err := r.Available(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		r.Width, r.Height, r.Width, r.Height)
	if r.Background != "" {
		fmt.Fprintf(bw, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", html.EscapeString(r.Background))
	}
	for _, p := range r.Layout(weights) {
		fmt.Fprintf(bw, `  <text x="%.1f" y="%.1f" font-family="sans-serif" font-size="%.1f" fill="%s">%s</text>`+"\n",
			p.X, p.Y, p.FontSize, p.Color, html.EscapeString(p.Term))
	}
	bw.WriteString("</svg>\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write svg: %w", err)
	}
	return nil
}
