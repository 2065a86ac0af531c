package cloud

import (
	"errors"
	"io"
	"sort"
)

// ErrUnavailable is returned when a renderer's capability is missing.
var ErrUnavailable = errors.New("word cloud rendering unavailable")

// Renderer draws a word cloud from a term to weight mapping.
type Renderer interface {
	Name() string
	// Available returns nil when the renderer can be used, or an error
	// wrapping ErrUnavailable describing what is missing.
	Available() error
	Render(w io.Writer, weights map[string]float64) error
}

// Disabled is a Renderer whose capability is switched off by configuration.
type Disabled struct{}

func (Disabled) Name() string { return "disabled" }

func (Disabled) Available() error {
	return unavailable("word cloud disabled by configuration")
}

func (Disabled) Render(io.Writer, map[string]float64) error {
	return unavailable("word cloud disabled by configuration")
}

type entry struct {
	term   string
	weight float64
}

// ranked orders weights by descending weight, then ascending term.
func ranked(weights map[string]float64) []entry {
	entries := make([]entry, 0, len(weights))
	for term, w := range weights {
		if w < 0 {
			w = 0
		}
		entries = append(entries, entry{term: term, weight: w})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return entries[i].term < entries[j].term
	})
	return entries
}

// scale maps w from [lo, hi] onto [from, to]. When every weight is equal
// the upper bound is used, unless the weights are all zero.
func scale(w, lo, hi, from, to float64) float64 {
	if hi > lo {
		return from + (w-lo)/(hi-lo)*(to-from)
	}
	if hi > 0 {
		return to
	}
	return from
}

func unavailable(reason string) error {
	return &unavailableError{reason: reason}
}

type unavailableError struct {
	reason string
}

func (e *unavailableError) Error() string {
	return ErrUnavailable.Error() + ": " + e.reason
}

func (e *unavailableError) Unwrap() error {
	return ErrUnavailable
}
