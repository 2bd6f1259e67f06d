package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

const DefaultHashingDimension = 512

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "what": {}, "with": {},
}

// Hashing is an offline embedder: term counts hashed into a fixed number of
// signed buckets. Similar wording gives similar vectors; meaning does not.
type Hashing struct {
	Dimension int
}

func (h Hashing) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	dim := h.Dimension
	if dim <= 0 {
		dim = DefaultHashingDimension
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, dim)
		for _, tok := range Tokenize(text) {
			hf := fnv.New32a()
			hf.Write([]byte(tok))
			sum := hf.Sum32()
			sign := float32(1)
			if sum&(1<<31) != 0 {
				sign = -1
			}
			v[int(sum%uint32(dim))] += sign
		}
		out[i] = v
	}
	return out, nil
}

// Tokenize lower-cases text and returns its word tokens without stopwords.
func Tokenize(text string) []string {
	var toks []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, ok := stopwords[tok]; ok {
			continue
		}
		toks = append(toks, tok)
	}
	return toks
}
