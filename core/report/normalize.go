package report

import (
	"sort"

	"github.com/asaidimu/go-cdibase/core/schema"
)

// NormalizeWord returns the lookup key of a vocabulary word. Applying it
// twice yields the same key as applying it once.
func NormalizeWord(word string) string {
	return schema.NormalizeWord(word)
}

// AlignVocabulary fixes the word columns of a batch of records. A non-empty
// target is used as given (normalized, duplicates dropped). Otherwise the
// union of every record's answered words is used, sorted.
func AlignVocabulary(target []string, entries [][]schema.WordAnswerEntry) []string {
	seen := make(map[string]struct{})
	var vocabulary []string
	add := func(word string) {
		key := NormalizeWord(word)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		vocabulary = append(vocabulary, key)
	}

	if len(target) > 0 {
		for _, word := range target {
			add(word)
		}
		return vocabulary
	}

	for _, recordEntries := range entries {
		for _, entry := range recordEntries {
			add(entry.Word)
		}
	}
	sort.Strings(vocabulary)
	return vocabulary
}

// AnswerIndex maps normalized words to answer codes for one record. When a
// word is answered more than once the highest revision wins.
type AnswerIndex map[string]schema.WordAnswerEntry

// NewAnswerIndex indexes the answers of one record.
func NewAnswerIndex(entries []schema.WordAnswerEntry) AnswerIndex {
	index := make(AnswerIndex, len(entries))
	for _, entry := range entries {
		key := NormalizeWord(entry.Word)
		if existing, ok := index[key]; ok && existing.Revision > entry.Revision {
			continue
		}
		index[key] = entry
	}
	return index
}

// Lookup returns the answer code for a word, or NoData when the record has
// no answer for it.
func (a AnswerIndex) Lookup(word string) int {
	entry, ok := a[NormalizeWord(word)]
	if !ok {
		return schema.NoData
	}
	return entry.Value
}
