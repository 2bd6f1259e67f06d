package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileActions owns the annotated output directory.
type FileActions struct {
	OutputDir string
}

func NewFileActions(outputDir string) (*FileActions, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory not set")
	}
	absPath, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for %s: %w", outputDir, err)
	}
	return &FileActions{OutputDir: absPath}, nil
}

// AnnotatedPath names the annotated copy of a document produced at t.
func (fa *FileActions) AnnotatedPath(document string, t time.Time) string {
	return filepath.Join(fa.OutputDir, fmt.Sprintf("annotated_%s_%d.pdf", filepath.Base(document), t.Unix()))
}

// sanitizeFilename keeps filename inside the output directory.
func (fa *FileActions) sanitizeFilename(filename string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return "", fmt.Errorf("filename must end with .pdf")
	}
	cleanPath := filepath.Join(fa.OutputDir, filepath.Base(filename))
	if !strings.HasPrefix(cleanPath, fa.OutputDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid filename, attempts to escape output directory")
	}
	return cleanPath, nil
}

// ResolveAnnotated returns the path of an existing annotated PDF.
func (fa *FileActions) ResolveAnnotated(filename string) (string, error) {
	path, err := fa.sanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, filepath.Base(filename))
	}
	return path, nil
}
