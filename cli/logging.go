package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// setupLogging mirrors the standard logger into outputDir/logs.
func setupLogging(subcommand, outputDir string) (func(), error) {
	logDir := filepath.Join(outputDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("pdfrag-%s-%s.log", subcommand, time.Now().Format("20060102-150405"))
	logPath := filepath.Join(logDir, name)

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	log.Printf("Log file: %s", logPath)
	return func() {
		log.SetOutput(os.Stderr)
		logFile.Close()
	}, nil
}
