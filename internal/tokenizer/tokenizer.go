// Package tokenizer turns free text into the fixed-length ID sequence fed to
// the embedding model. Output must match the mobile client's tokenizer ID for ID.
package tokenizer

import (
	"strings"
	"unicode"
)

const (
	// PadID fills the sequence after the separator.
	PadID int32 = 0
	// UnknownID stands in for any word missing from the dictionary.
	UnknownID int32 = 100
	// ClsID opens every sequence.
	ClsID int32 = 101
	// SepID closes the word IDs.
	SepID int32 = 102
	// SequenceLength is the fixed model input width.
	SequenceLength = 128
)

// Tokenizer is safe for concurrent use.
type Tokenizer struct {
	dict *Dictionary
}

func New(dict *Dictionary) *Tokenizer {
	return &Tokenizer{dict: dict}
}

// Dictionary returns the dictionary backing t.
func (t *Tokenizer) Dictionary() *Dictionary {
	return t.dict
}

// Tokenize returns exactly SequenceLength IDs: ClsID, the dictionary IDs of
// each cleaned word (UnknownID on a miss), SepID, then PadID up to length.
// Long inputs are cut at SequenceLength, which may drop SepID.
func (t *Tokenizer) Tokenize(text string) []int32 {
	ids := make([]int32, 0, SequenceLength)
	ids = append(ids, ClsID)
	for _, word := range CleanWords(text) {
		if mapped, ok := t.dict.Lookup(word); ok {
			ids = append(ids, mapped...)
		} else {
			ids = append(ids, UnknownID)
		}
		if len(ids) >= SequenceLength {
			break
		}
	}
	ids = append(ids, SepID)

	if len(ids) > SequenceLength {
		return ids[:SequenceLength]
	}
	for len(ids) < SequenceLength {
		ids = append(ids, PadID)
	}
	return ids
}

// CleanWords lowercases text, keeps only a-z, 0-9 and whitespace, and splits
// on whitespace.
func CleanWords(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// IsSpace matches the client's notion of whitespace: Unicode White_Space
// plus the four ASCII information separators.
func IsSpace(r rune) bool {
	if r >= 0x1c && r <= 0x1f {
		return true
	}
	return unicode.IsSpace(r)
}
