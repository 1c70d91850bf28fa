// internal/maxent/vocabulary.go
package maxent

import (
	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

// Vocabulary maps label strings to dense keys 0..Len()-1 in order of first
// occurrence. It is built once from the training set and never modified.
type Vocabulary struct {
	labels []string
	keys   map[string]int
	counts []int
}

// BuildVocabulary assigns keys to labels in order of first occurrence and
// counts how often each label appears.
func BuildVocabulary(labels []string) *Vocabulary {
	v := &Vocabulary{keys: make(map[string]int)}
	for _, label := range labels {
		key, ok := v.keys[label]
		if !ok {
			key = len(v.labels)
			v.keys[label] = key
			v.labels = append(v.labels, label)
			v.counts = append(v.counts, 0)
		}
		v.counts[key]++
	}
	return v
}

// Key returns the key for label, or *errs.UnknownLabelError.
func (v *Vocabulary) Key(label string) (int, error) {
	key, ok := v.keys[label]
	if !ok {
		return -1, &errs.UnknownLabelError{Label: label}
	}
	return key, nil
}

// Label returns the label string for key.
func (v *Vocabulary) Label(key int) (string, bool) {
	if key < 0 || key >= len(v.labels) {
		return "", false
	}
	return v.labels[key], true
}

// Labels returns a copy of the labels in key order.
func (v *Vocabulary) Labels() []string {
	return append([]string(nil), v.labels...)
}

func (v *Vocabulary) Len() int {
	return len(v.labels)
}

// Count returns how many training examples carried key.
func (v *Vocabulary) Count(key int) int {
	if key < 0 || key >= len(v.counts) {
		return 0
	}
	return v.counts[key]
}

// Prior returns the training class frequencies in key order.
func (v *Vocabulary) Prior() []float64 {
	total := 0
	for _, c := range v.counts {
		total += c
	}
	prior := make([]float64, len(v.counts))
	if total == 0 {
		return prior
	}
	for i, c := range v.counts {
		prior[i] = float64(c) / float64(total)
	}
	return prior
}
