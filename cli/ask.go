package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itish2003/pdfrag/models"
	"github.com/itish2003/pdfrag/services"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask <document> <question>...",
	Short: "Answer a question about a processed document",
	Long:  `Retrieves the closest chunks, asks the configured LLM and writes an annotated PDF highlighting the evidence.`,
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.RAG.Answer(cmd.Context(), models.QueryTextRequest{
		Document: args[0],
		Query:    strings.Join(args[1:], " "),
		TopK:     askTopK,
	})
	if err != nil && !(errors.Is(err, services.ErrHighlight) && res != nil) {
		return err
	}

	cmd.Println(res.Answer)
	cmd.Println()
	cmd.Println("Evidence:")
	for i, ev := range res.Evidence {
		cmd.Printf("  [%d] p.%d  %s\n", i+1, ev.Page, preview(ev.Snippet, 100))
	}
	if res.AnnotatedPDF != "" {
		cmd.Printf("\nAnnotated PDF: %s\n", res.AnnotatedPDF)
	}
	if res.HighlightError != "" {
		cmd.Printf("\nHighlighting failed: %s\n", res.HighlightError)
	}
	return nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
