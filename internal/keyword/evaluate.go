package keyword

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Evaluation compares extracted keywords against a reference set.
type Evaluation struct {
	TruePositives  int      `json:"true_positives"`
	FalsePositives int      `json:"false_positives"`
	FalseNegatives int      `json:"false_negatives"`
	Precision      float64  `json:"precision"`
	Recall         float64  `json:"recall"`
	F1             float64  `json:"f1"`
	Matched        []string `json:"matched"`
	Extra          []string `json:"extra"`
	Missed         []string `json:"missed"`
}

// Evaluate counts the terms of extracted found in reference (true
// positives), the ones that are not (false positives), and the reference
// terms never extracted (false negatives). Terms are compared lowercased and
// each set is deduplicated. A ratio whose denominator is zero is reported as
// 0.
func Evaluate(reference, extracted []string) Evaluation {
	ref := termSet(reference)
	got := termSet(extracted)

	ev := Evaluation{Matched: []string{}, Extra: []string{}, Missed: []string{}}
	for term := range got {
		if _, ok := ref[term]; ok {
			ev.Matched = append(ev.Matched, term)
		} else {
			ev.Extra = append(ev.Extra, term)
		}
	}
	for term := range ref {
		if _, ok := got[term]; !ok {
			ev.Missed = append(ev.Missed, term)
		}
	}
	sort.Strings(ev.Matched)
	sort.Strings(ev.Extra)
	sort.Strings(ev.Missed)

	ev.TruePositives = len(ev.Matched)
	ev.FalsePositives = len(ev.Extra)
	ev.FalseNegatives = len(ev.Missed)
	ev.Precision = ratio(ev.TruePositives, ev.TruePositives+ev.FalsePositives)
	ev.Recall = ratio(ev.TruePositives, ev.TruePositives+ev.FalseNegatives)
	if ev.Precision+ev.Recall > 0 {
		ev.F1 = 2 * ev.Precision * ev.Recall / (ev.Precision + ev.Recall)
	}
	return ev
}

func termSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// LoadTerms reads a term list from disk in the ParseTerms format.
func LoadTerms(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open term list: %w", err)
	}
	defer f.Close()
	return ParseTerms(f)
}

// ParseTerms reads whitespace-separated terms, lowercased, with '#'
// starting a comment that runs to the end of the line.
func ParseTerms(r io.Reader) ([]string, error) {
	var terms []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, f := range strings.Fields(line) {
			terms = append(terms, strings.ToLower(f))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read term list: %w", err)
	}
	return terms, nil
}
