package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itish2003/pdfrag/controller"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  `Serves the query, document and annotated-PDF endpoints. With --watch the raw directory is scanned once and then watched for new or changed PDFs.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "index the raw directory and watch it for changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveWatch || cfg.Server.Watch {
		go func() {
			if _, err := a.Indexer.ScanAndIndexDirectory(ctx); err != nil {
				log.Printf("INDEXER ERROR: initial scan failed: %v", err)
			}
			if err := a.Indexer.WatchDirectory(ctx); err != nil {
				log.Printf("WATCHER ERROR: %v", err)
			}
		}()
	}

	router := controller.NewRouter(controller.NewRAGController(a.RAG, a.Indexer, cfg.Paths.RawDir))
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("pdfrag server starting on %s", cfg.Server.Addr)
		log.Printf("Health check available at: %s/health", cfg.Server.Addr)
		log.Printf("API endpoints:")
		log.Printf("  POST %s/api/v1/query", cfg.Server.Addr)
		log.Printf("  GET  %s/api/v1/documents", cfg.Server.Addr)
		log.Printf("  POST %s/api/v1/documents", cfg.Server.Addr)
		log.Printf("  GET  %s/api/v1/annotated/:name", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
