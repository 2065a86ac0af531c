package cloud

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// TermRenderer prints a colored cloud to a terminal. Heavier terms are
// upper-cased and bold.
type TermRenderer struct {
	out   *os.File
	width int
}

// NewTermRenderer returns a renderer that is available only when out is a
// terminal.
func NewTermRenderer(out *os.File) *TermRenderer {
	r := &TermRenderer{out: out, width: 80}
	if out != nil {
		if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
			r.width = w
		}
	}
	return r
}

func (r *TermRenderer) Name() string { return "terminal" }

func (r *TermRenderer) Available() error {
	if r.out == nil || !term.IsTerminal(int(r.out.Fd())) {
		return unavailable("output is not a terminal")
	}
	return nil
}

var termStyles = []*color.Color{
	color.New(color.FgRed, color.Bold),
	color.New(color.FgYellow, color.Bold),
	color.New(color.FgGreen),
	color.New(color.FgCyan),
	color.New(color.FgBlue),
}

// Render writes the cloud to w. The capability check only guards whether the
// caller should pick this renderer; Render itself works on any writer.
func (r *TermRenderer) Render(w io.Writer, weights map[string]float64) error {
	entries := ranked(weights)
	if len(entries) == 0 {
		return nil
	}
	hi, lo := entries[0].weight, entries[len(entries)-1].weight

	col := 0
	for _, e := range entries {
		level := int(scale(e.weight, lo, hi, 0, float64(len(termStyles)-1)) + 0.5)
		style := termStyles[len(termStyles)-1-level]
		word := e.term
		if level >= len(termStyles)-2 {
			word = strings.ToUpper(word)
		}

		n := utf8.RuneCountInString(word) + 2
		if col > 0 && col+n > r.width {
			if _, err := fmt.Fprintln(w); err != nil {
				return fmt.Errorf("failed to write cloud: %w", err)
			}
			col = 0
		}
		if _, err := style.Fprint(w, word); err != nil {
			return fmt.Errorf("failed to write cloud: %w", err)
		}
		fmt.Fprint(w, "  ")
		col += n
	}
	_, err := fmt.Fprintln(w)
	return err
}
