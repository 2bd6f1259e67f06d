package chunker

import (
	"github.com/tmc/langchaingo/textsplitter"
)

// NewRecursive returns a langchaingo recursive character splitter with the
// given size and overlap. It measures length in runes like Window.
func NewRecursive(size, overlap int) Splitter {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)
}
