package corpus

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mwiater/gyan/internal/logging"
)

var warnf = logging.LogWarning

type rawEntry struct {
	Text      string            `json:"text"`
	Vector    []json.RawMessage `json:"vector"`
	Embedding []json.RawMessage `json:"embedding"`
	Metadata  map[string]any    `json:"metadata"`
}

// LoadJSON reads a JSON array or JSON Lines file of entries from path.
func LoadJSON(path string, dimension int) (*Store, LoadReport, error) {
	if strings.TrimSpace(path) == "" {
		return nil, LoadReport{}, ErrEmptyPath
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	entries, err := DecodeJSON(f)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("decode corpus %s: %w", path, err)
	}
	store, report := NewStore(entries, dimension)
	report.Source = path
	return store, report, nil
}

// DecodeJSON decodes entries from r. A leading '[' means a JSON array,
// anything else is read as a stream of objects (JSON Lines).
func DecodeJSON(r io.Reader) ([]Entry, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	dec := json.NewDecoder(&nonFiniteReader{r: br})
	dec.UseNumber()

	var entries []Entry
	if first == '[' {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		for dec.More() {
			e, err := decodeEntry(dec, len(entries))
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return entries, nil
	}

	for {
		e, err := decodeEntry(dec, len(entries))
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n', 0xef, 0xbb, 0xbf: // whitespace or UTF-8 BOM
			continue
		}
		return b, br.UnreadByte()
	}
}

func decodeEntry(dec *json.Decoder, index int) (Entry, error) {
	var raw rawEntry
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("entry %d: %w", index, err)
	}

	vec := raw.Vector
	if vec == nil {
		vec = raw.Embedding
	}
	e := Entry{Text: raw.Text, Vector: make([]float32, len(vec))}
	for i, v := range vec {
		e.Vector[i] = component(v)
	}
	e.Metadata = flattenMetadata(raw.Metadata, index)
	return e, nil
}

// component converts one vector element. Anything that is not a finite
// number (null, NaN, Infinity, strings) becomes NaN so validation rejects
// the entry instead of scoring it.
func component(raw json.RawMessage) float32 {
	text := strings.TrimSpace(string(raw))
	switch text {
	case `"Infinity"`:
		return float32(math.Inf(1))
	case `"-Infinity"`:
		return float32(math.Inf(-1))
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return float32(math.NaN())
	}
	return float32(f)
}

// nonFiniteReader quotes the bare NaN, Infinity and -Infinity tokens that
// Python's json.dump writes, so encoding/json can decode the document.
// Text inside strings is passed through untouched.
type nonFiniteReader struct {
	r        *bufio.Reader
	pending  []byte
	inString bool
	escaped  bool
}

var nonFiniteTokens = []string{"NaN", "Infinity", "-Infinity"}

func (n *nonFiniteReader) Read(p []byte) (int, error) {
	for len(n.pending) == 0 {
		b, err := n.r.ReadByte()
		if err != nil {
			return 0, err
		}
		n.pending = append(n.pending[:0], b)

		if n.inString {
			switch {
			case n.escaped:
				n.escaped = false
			case b == '\\':
				n.escaped = true
			case b == '"':
				n.inString = false
			}
			continue
		}
		if b == '"' {
			n.inString = true
			continue
		}
		if b != 'N' && b != 'I' && b != '-' {
			continue
		}
		for _, tok := range nonFiniteTokens {
			if tok[0] != b {
				continue
			}
			if rest, _ := n.r.Peek(len(tok) - 1); string(rest) == tok[1:] {
				_, _ = n.r.Discard(len(tok) - 1)
				n.pending = append(n.pending[:0], '"')
				n.pending = append(n.pending, tok...)
				n.pending = append(n.pending, '"')
				break
			}
		}
	}
	c := copy(p, n.pending)
	n.pending = n.pending[c:]
	return c, nil
}

// flattenMetadata keeps scalar values as strings and drops nested ones.
func flattenMetadata(in map[string]any, index int) map[string]string {
	if len(in) == 0 {
		return nil
	}
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(in))
	for _, k := range keys {
		switch v := in[k].(type) {
		case string:
			out[k] = v
		case json.Number:
			out[k] = v.String()
		case bool:
			out[k] = strconv.FormatBool(v)
		case nil:
			out[k] = ""
		default:
			warnf("corpus entry %d: metadata %q is not a scalar, skipped", index, k)
		}
	}
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }
