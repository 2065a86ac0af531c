package keyword

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kljensen/snowball/english"
)

// DefaultTopN is the maximum number of keywords returned by Score.
const DefaultTopN = 10

// DefaultMinTokenLength is the shortest token, in runes, kept by the tokenizer.
const DefaultMinTokenLength = 2

// Keyword is a term paired with its TF-IDF weight.
type Keyword struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Keywords is a ranked keyword list.
type Keywords []Keyword

// Map returns the term to weight mapping consumed by word-cloud renderers.
func (k Keywords) Map() map[string]float64 {
	m := make(map[string]float64, len(k))
	for _, kw := range k {
		m[kw.Term] = kw.Weight
	}
	return m
}

// Terms returns the terms in rank order.
func (k Keywords) Terms() []string {
	terms := make([]string, len(k))
	for i, kw := range k {
		terms[i] = kw.Term
	}
	return terms
}

// IDFMode selects the inverse-document-frequency formula. The corpus always
// holds exactly one document, so n = 1 and df = 1 for every term.
type IDFMode string

const (
	// IDFSmooth is ln((1+n)/(1+df)) + 1, which is 1 for a single document.
	IDFSmooth IDFMode = "smooth"
	// IDFPlain is ln(n/df) + 1, which is also 1 for a single document.
	IDFPlain IDFMode = "plain"
	// IDFClassic is ln(n/df), which is 0 for a single document: every weight
	// collapses to zero.
	IDFClassic IDFMode = "classic"
)

// NormMode selects the normalization applied to the weighted vector.
type NormMode string

const (
	NormL2   NormMode = "l2"
	NormL1   NormMode = "l1"
	NormNone NormMode = "none"
)

// ParseIDFMode validates an IDF mode name.
func ParseIDFMode(s string) (IDFMode, error) {
	switch m := IDFMode(strings.ToLower(strings.TrimSpace(s))); m {
	case IDFSmooth, IDFPlain, IDFClassic:
		return m, nil
	}
	return "", fmt.Errorf("unknown idf mode %q", s)
}

// ParseNormMode validates a normalization mode name.
func ParseNormMode(s string) (NormMode, error) {
	switch m := NormMode(strings.ToLower(strings.TrimSpace(s))); m {
	case NormL2, NormL1, NormNone:
		return m, nil
	}
	return "", fmt.Errorf("unknown norm mode %q", s)
}

// Scorer ranks the terms of a single document by TF-IDF weight.
// A Scorer is immutable after construction and safe for concurrent use.
type Scorer struct {
	stopWords      StopWords
	topN           int
	minTokenLength int
	idf            IDFMode
	norm           NormMode
	sublinearTF    bool
	stem           bool
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithStopWords replaces the stop-word set.
func WithStopWords(sw StopWords) Option {
	return func(s *Scorer) { s.stopWords = sw }
}

// WithTopN sets the maximum result length. Non-positive values are ignored.
func WithTopN(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithMinTokenLength sets the shortest token kept, in runes.
func WithMinTokenLength(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.minTokenLength = n
		}
	}
}

func WithIDF(m IDFMode) Option {
	return func(s *Scorer) { s.idf = m }
}

func WithNorm(m NormMode) Option {
	return func(s *Scorer) { s.norm = m }
}

// WithSublinearTF replaces raw counts with 1 + ln(count).
func WithSublinearTF(enabled bool) Option {
	return func(s *Scorer) { s.sublinearTF = enabled }
}

// WithStemming reduces terms to their English snowball stem after stop-word
// removal. Stemmed terms need not appear verbatim in the input.
func WithStemming(enabled bool) Option {
	return func(s *Scorer) { s.stem = enabled }
}

// NewScorer returns a Scorer using smooth IDF, L2 normalization, the English
// stop-word list and a top-10 cutoff unless overridden.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		stopWords:      English(),
		topN:           DefaultTopN,
		minTokenLength: DefaultMinTokenLength,
		idf:            IDFSmooth,
		norm:           NormL2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultScorer = NewScorer()

// Score ranks the keywords of text with the default Scorer.
func Score(text string) []Keyword {
	return defaultScorer.Score(text)
}

// StopWords returns the scorer's stop-word set.
func (s *Scorer) StopWords() StopWords {
	return s.stopWords
}

// TopN returns the result length cap.
func (s *Scorer) TopN() int {
	return s.topN
}

// Terms tokenizes text and drops stop-words, preserving order and repeats.
func (s *Scorer) Terms(text string) []string {
	tokens := Tokenize(text, s.minTokenLength)
	terms := tokens[:0]
	for _, token := range tokens {
		if s.stopWords.Contains(token) {
			continue
		}
		if s.stem {
			token = english.Stem(token, true)
			if token == "" || s.stopWords.Contains(token) {
				continue
			}
		}
		terms = append(terms, token)
	}
	return terms
}

// Weights returns the normalized TF-IDF weight of every distinct term in text.
func (s *Scorer) Weights(text string) map[string]float64 {
	// 1. Term frequency
	tf := make(map[string]float64)
	for _, term := range s.Terms(text) {
		tf[term]++
	}
	if len(tf) == 0 {
		return tf
	}

	// 2. TF-IDF
	idf := s.idfWeight()
	for term, count := range tf {
		if s.sublinearTF {
			count = 1 + math.Log(count)
		}
		tf[term] = count * idf
	}

	// 3. Normalize
	var norm float64
	switch s.norm {
	case NormL2:
		for _, w := range tf {
			norm += w * w
		}
		norm = math.Sqrt(norm)
	case NormL1:
		for _, w := range tf {
			norm += math.Abs(w)
		}
	}
	if norm > 0 {
		for term, w := range tf {
			tf[term] = w / norm
		}
	}
	return tf
}

// Score returns at most TopN keywords sorted by descending weight, ties
// broken by ascending term. Text with no surviving terms yields an empty list.
func (s *Scorer) Score(text string) []Keyword {
	weights := s.Weights(text)
	result := make([]Keyword, 0, len(weights))
	for term, w := range weights {
		result = append(result, Keyword{Term: term, Weight: w})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Weight != result[j].Weight {
			return result[i].Weight > result[j].Weight
		}
		return result[i].Term < result[j].Term
	})

	if len(result) > s.topN {
		return result[:s.topN]
	}
	return result
}

func (s *Scorer) idfWeight() float64 {
	const n, df = 1.0, 1.0
	switch s.idf {
	case IDFClassic:
		return math.Log(n / df)
	case IDFPlain:
		return math.Log(n/df) + 1
	default:
		return math.Log((1+n)/(1+df)) + 1
	}
}
