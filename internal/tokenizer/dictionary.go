package tokenizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrEmptyDictionary is returned when a dictionary file holds no words.
var ErrEmptyDictionary = errors.New("dictionary contains no words")

// CommonQueryWords are the words every dictionary is expected to cover,
// because nearly every user question starts with one of them.
var CommonQueryWords = []string{"what", "is", "explain", "define", "how", "why", "describe", "tell", "me", "about"}

// Dictionary maps a cleaned lowercase word to the ordered subword IDs the
// embedding model expects. It is never mutated after LoadDictionary returns.
type Dictionary struct {
	words map[string][]int32
}

// NewDictionary builds a dictionary from an in-memory map. The map is copied.
func NewDictionary(words map[string][]int32) *Dictionary {
	cp := make(map[string][]int32, len(words))
	for word, ids := range words {
		cp[word] = append([]int32(nil), ids...)
	}
	return &Dictionary{words: cp}
}

// LoadDictionary reads a JSON object of word -> [ids] from path.
func LoadDictionary(path string) (*Dictionary, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("dictionary path: %w", os.ErrNotExist)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary %s: %w", path, err)
	}
	var raw map[string][]int32
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode dictionary %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("load dictionary %s: %w", path, ErrEmptyDictionary)
	}
	return &Dictionary{words: raw}, nil
}

// Len returns the number of words in the dictionary.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.words)
}

// Lookup returns the IDs mapped to word.
func (d *Dictionary) Lookup(word string) ([]int32, bool) {
	if d == nil {
		return nil, false
	}
	ids, ok := d.words[word]
	return ids, ok
}

// Missing returns the distinct words absent from the dictionary, sorted.
func (d *Dictionary) Missing(words []string) []string {
	seen := make(map[string]struct{})
	var missing []string
	for _, word := range words {
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		if _, ok := d.Lookup(word); !ok {
			missing = append(missing, word)
		}
	}
	sort.Strings(missing)
	return missing
}
