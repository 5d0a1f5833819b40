package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultStaticDimensions is the vector size of the static embedder.
const DefaultStaticDimensions = 256

const (
	staticModelName = "static-hash"
	wordWeight      = 0.7
	trigramWeight   = 0.3
)

// keywords that carry no meaning for search across languages.
var keywords = map[string]struct{}{
	"func": {}, "function": {}, "def": {}, "fn": {}, "class": {}, "return": {},
	"import": {}, "from": {}, "const": {}, "var": {}, "let": {}, "new": {},
	"this": {}, "self": {}, "nil": {}, "null": {}, "none": {}, "true": {}, "false": {},
}

// StaticEmbedder hashes identifier words and character trigrams into a fixed
// size vector. It needs no model or network and is deterministic, which makes
// it the provider for offline runs and tests.
type StaticEmbedder struct {
	dimensions int
}

func NewStaticEmbedder(dimensions int) *StaticEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultStaticDimensions
	}
	return &StaticEmbedder{dimensions: dimensions}
}

func (e *StaticEmbedder) Load(context.Context) error { return nil }

func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *StaticEmbedder) Dimensions() int { return e.dimensions }

func (e *StaticEmbedder) ModelName() string { return staticModelName }

func (e *StaticEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dimensions)

	for _, word := range identifierWords(text) {
		if _, skip := keywords[word]; skip {
			continue
		}
		vec[e.bucket(word)] += wordWeight
	}

	compact := compactLower(text)
	for i := 0; i+3 <= len(compact); i++ {
		vec[e.bucket(string(compact[i:i+3]))] += trigramWeight
	}

	normalize(vec)
	return vec
}

func (e *StaticEmbedder) bucket(s string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(e.dimensions))
}

// identifierWords splits text into lower-cased words, breaking identifiers at
// underscores and camelCase boundaries ("parseHTTPRequest" -> parse, http, request).
func identifierWords(text string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()

	return words
}

func compactLower(text string) []rune {
	out := make([]rune, 0, len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return out
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
