package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf>...",
	Short: "Extract, chunk and index PDFs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	a.Indexer.SetProgress(newProgress())

	var errs []error
	for _, path := range args {
		resp, err := a.Indexer.ProcessPDF(cmd.Context(), path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			errs = append(errs, err)
			continue
		}
		cmd.Printf("%s: %d pages, %d chunks, %d indexed\n", resp.Document, resp.Pages, resp.Chunks, resp.Indexed)
	}
	return errors.Join(errs...)
}
