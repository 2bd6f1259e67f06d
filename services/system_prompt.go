package services

import (
	"fmt"
	"strings"

	"github.com/itish2003/pdfrag/vectorstore"
)

// UnknownAnswer is what the model is told to say when the sources do not
// contain the answer.
const UnknownAnswer = "I don't know based on the provided documents."

// BuildPrompt renders the grounded answering prompt for query over the
// retrieved chunks, in rank order.
func BuildPrompt(query string, hits []vectorstore.Match) string {
	blocks := make([]string, 0, len(hits))
	for i, h := range hits {
		page := "?"
		if h.Metadata.Page > 0 {
			page = fmt.Sprint(h.Metadata.Page)
		}
		blocks = append(blocks, fmt.Sprintf("[Source %d | p.%s]: %s\n", i+1, page, strings.TrimSpace(h.Text)))
	}

	var sb strings.Builder
	sb.WriteString("You are a helpful assistant that answers ONLY from the provided sources.\n")
	sb.WriteString(fmt.Sprintf("If the answer is not clearly present in the sources, say: %q\n", UnknownAnswer))
	sb.WriteString("Always add citations like [p.N] using the page numbers shown.\n\n")
	sb.WriteString("Question: " + strings.TrimSpace(query) + "\n\n")
	sb.WriteString("Sources:\n")
	sb.WriteString(strings.Join(blocks, "\n---\n"))
	sb.WriteString("\n\nAnswer (with citations):")
	return sb.String()
}
