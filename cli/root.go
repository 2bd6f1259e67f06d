// Package cli implements the pdfrag command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itish2003/pdfrag/app"
	"github.com/itish2003/pdfrag/config"
)

var (
	configPath string
	cfg        *config.Config
	closeLog   = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "pdfrag",
	Short: "Ask questions about PDFs and get highlighted evidence",
	Long: `pdfrag ingests PDFs (with OCR for scanned pages), indexes their chunks in a
vector store, answers questions with a local or hosted LLM and writes an
annotated copy of the PDF that highlights the evidence behind each answer.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(*cobra.Command, []string) { closeLog() },
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./"+config.DefaultFile+")")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	config.LoadEnv()
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}
	if cfg.Logging.File {
		closer, err := setupLogging(cmd.Name(), cfg.Paths.OutputDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		} else {
			closeLog = closer
		}
	}
	return nil
}

func openApp(ctx context.Context, withGenerator bool) (*app.App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return app.New(ctx, cfg, withGenerator)
}
