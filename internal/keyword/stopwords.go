package keyword

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// StopWords is an immutable set of words excluded from keyword candidates.
// The zero value is an empty set.
type StopWords struct {
	words map[string]struct{}
}

// NewStopWords builds a set from the given words. Words are trimmed and
// lowercased; empty entries are ignored.
func NewStopWords(words ...string) StopWords {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return StopWords{words: set}
}

// English returns the built-in general-English stop-word list.
func English() StopWords {
	return englishStopWords
}

// Contains reports whether word is a stop-word.
func (s StopWords) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Len returns the number of words in the set.
func (s StopWords) Len() int {
	return len(s.words)
}

// Words returns the members in lexicographic order.
func (s StopWords) Words() []string {
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Union returns a new set holding the members of both s and other.
func (s StopWords) Union(other StopWords) StopWords {
	set := make(map[string]struct{}, len(s.words)+len(other.words))
	for w := range s.words {
		set[w] = struct{}{}
	}
	for w := range other.words {
		set[w] = struct{}{}
	}
	return StopWords{words: set}
}

type stopWordsFile struct {
	Words []string `yaml:"words"`
}

// LoadStopWords reads a stop-word list from disk. Files ending in .yaml or
// .yml hold either a bare list or a mapping with a "words" key; anything else
// is read as plain text, one word per line, with '#' starting a comment.
func LoadStopWords(path string) (StopWords, error) {
	f, err := os.Open(path)
	if err != nil {
		return StopWords{}, fmt.Errorf("failed to open stop-word file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseStopWordsYAML(f)
	default:
		return ParseStopWords(f)
	}
}

// ParseStopWords reads a plain-text list in the ParseTerms format.
func ParseStopWords(r io.Reader) (StopWords, error) {
	words, err := ParseTerms(r)
	if err != nil {
		return StopWords{}, fmt.Errorf("failed to read stop-word list: %w", err)
	}
	return NewStopWords(words...), nil
}

// ParseStopWordsYAML decodes a YAML stop-word document.
func ParseStopWordsYAML(r io.Reader) (StopWords, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return StopWords{}, fmt.Errorf("failed to read stop-word list: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return StopWords{}, fmt.Errorf("failed to parse stop-word yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return NewStopWords(), nil
	}

	var words []string
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&words); err != nil {
			return StopWords{}, fmt.Errorf("failed to decode stop-word list: %w", err)
		}
	case yaml.MappingNode:
		var doc stopWordsFile
		if err := node.Content[0].Decode(&doc); err != nil {
			return StopWords{}, fmt.Errorf("failed to decode stop-word list: %w", err)
		}
		words = doc.Words
	default:
		return StopWords{}, fmt.Errorf("unsupported stop-word yaml layout")
	}
	return NewStopWords(words...), nil
}

var englishStopWords = NewStopWords(
	"a", "about", "above", "across", "after", "afterwards", "again", "against",
	"all", "almost", "alone", "along", "already", "also", "although", "always",
	"am", "among", "amongst", "amoungst", "amount", "an", "and", "another",
	"any", "anyhow", "anyone", "anything", "anyway", "anywhere", "are",
	"around", "as", "at", "back", "be", "became", "because", "become",
	"becomes", "becoming", "been", "before", "beforehand", "behind", "being",
	"below", "beside", "besides", "between", "beyond", "bill", "both",
	"bottom", "but", "by", "call", "can", "cannot", "cant", "co", "con",
	"could", "couldnt", "cry", "de", "describe", "detail", "do", "done",
	"down", "due", "during", "each", "eg", "eight", "either", "eleven", "else",
	"elsewhere", "empty", "enough", "etc", "even", "ever", "every", "everyone",
	"everything", "everywhere", "except", "few", "fifteen", "fifty", "fill",
	"find", "fire", "first", "five", "for", "former", "formerly", "forty",
	"found", "four", "from", "front", "full", "further", "get", "give", "go",
	"had", "has", "hasnt", "have", "he", "hence", "her", "here", "hereafter",
	"hereby", "herein", "hereupon", "hers", "herself", "him", "himself", "his",
	"how", "however", "hundred", "i", "ie", "if", "in", "inc", "indeed",
	"interest", "into", "is", "it", "its", "itself", "keep", "last", "latter",
	"latterly", "least", "less", "ltd", "made", "many", "may", "me",
	"meanwhile", "might", "mill", "mine", "more", "moreover", "most", "mostly",
	"move", "much", "must", "my", "myself", "name", "namely", "neither",
	"never", "nevertheless", "next", "nine", "no", "nobody", "none", "noone",
	"nor", "not", "nothing", "now", "nowhere", "of", "off", "often", "on",
	"once", "one", "only", "onto", "or", "other", "others", "otherwise", "our",
	"ours", "ourselves", "out", "over", "own", "part", "per", "perhaps",
	"please", "put", "rather", "re", "same", "see", "seem", "seemed",
	"seeming", "seems", "serious", "several", "she", "should", "show", "side",
	"since", "sincere", "six", "sixty", "so", "some", "somehow", "someone",
	"something", "sometime", "sometimes", "somewhere", "still", "such",
	"system", "take", "ten", "than", "that", "the", "their", "them",
	"themselves", "then", "thence", "there", "thereafter", "thereby",
	"therefore", "therein", "thereupon", "these", "they", "thick", "thin",
	"third", "this", "those", "though", "three", "through", "throughout",
	"thru", "thus", "to", "together", "too", "top", "toward", "towards",
	"twelve", "twenty", "two", "un", "under", "until", "up", "upon", "us",
	"very", "via", "was", "we", "well", "were", "what", "whatever", "when",
	"whence", "whenever", "where", "whereafter", "whereas", "whereby",
	"wherein", "whereupon", "wherever", "whether", "which", "while", "whither",
	"who", "whoever", "whole", "whom", "whose", "why", "will", "with",
	"within", "without", "would", "yet", "you", "your", "yours", "yourself",
	"yourselves",
)
