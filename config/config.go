// Package config loads pdfrag settings from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultFile = "pdfrag.yaml"

// Paths are the directory roles of a pdfrag data tree. Load resolves them
// to absolute paths.
type Paths struct {
	DataDir      string `yaml:"data_dir"`
	RawDir       string `yaml:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	IndexDir     string `yaml:"index_dir"`
	OutputDir    string `yaml:"output_dir"`
}

type ChunkerConfig struct {
	Type       string `yaml:"type"`
	WindowSize int    `yaml:"window_size"`
	Overlap    int    `yaml:"overlap"`
}

type EmbedderConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	BatchSize   int    `yaml:"batch_size"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type VectorStoreConfig struct {
	Type       string `yaml:"type"`
	Path       string `yaml:"path"`
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
}

type GeneratorConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type OCRConfig struct {
	Disabled bool    `yaml:"disabled"`
	Command  string  `yaml:"command"`
	Language string  `yaml:"language"`
	DPI      float64 `yaml:"dpi"`
}

type PDFConfig struct {
	// Pattern selects PDFs under raw_dir for batch indexing.
	Pattern          string `yaml:"pattern"`
	ScannedThreshold int    `yaml:"scanned_threshold"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Watch bool   `yaml:"watch"`
}

type LoggingConfig struct {
	File bool `yaml:"file"`
}

type Config struct {
	Paths       Paths             `yaml:"paths"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Generator   GeneratorConfig   `yaml:"generator"`
	OCR         OCRConfig         `yaml:"ocr"`
	PDF         PDFConfig         `yaml:"pdf"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`

	// Secrets come from the environment only.
	GeminiAPIKey string `yaml:"-"`
	UnidocKey    string `yaml:"-"`
}

// LoadEnv loads a .env file from the working directory if there is one.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
}

// Load reads path, fills defaults, applies environment overrides, resolves
// paths and validates. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("CONFIG: %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads ./pdfrag.yaml if present, otherwise the defaults.
func LoadDefault() (*Config, string, error) {
	if _, err := os.Stat(DefaultFile); err == nil {
		cfg, err := Load(DefaultFile)
		return cfg, DefaultFile, err
	}
	cfg, err := Load("")
	return cfg, "", err
}

// Save writes cfg as YAML, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func Default() *Config {
	return &Config{
		Paths:       Paths{DataDir: "data"},
		Chunker:     ChunkerConfig{Type: "window", WindowSize: 1000, Overlap: 200},
		Embedder:    EmbedderConfig{Provider: "ollama", BatchSize: 64, TimeoutSecs: 60},
		VectorStore: VectorStoreConfig{Type: "sqlite", Collection: "pdf_chunks"},
		Generator:   GeneratorConfig{Provider: "ollama", TimeoutSecs: 180},
		OCR:         OCRConfig{Command: "tesseract", Language: "eng", DPI: 300},
		PDF:         PDFConfig{Pattern: "**/*.{pdf,PDF}", ScannedThreshold: 20},
		Retrieval:   RetrievalConfig{TopK: 5},
		Server:      ServerConfig{Addr: ":8080"},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PDFRAG_DATA_DIR"); v != "" {
		cfg.Paths.DataDir = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		if cfg.Embedder.BaseURL == "" {
			cfg.Embedder.BaseURL = v
		}
		if cfg.Generator.BaseURL == "" {
			cfg.Generator.BaseURL = v
		}
	}
	if v := os.Getenv("CHROMA_URL"); v != "" {
		cfg.VectorStore.URL = v
	}
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.UnidocKey = os.Getenv("UNIDOC_LICENSE_KEY")
}

func applyDefaults(cfg *Config) {
	d := Default()
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = d.Paths.DataDir
	}
	if cfg.Paths.RawDir == "" {
		cfg.Paths.RawDir = filepath.Join(cfg.Paths.DataDir, "raw_pdfs")
	}
	if cfg.Paths.ProcessedDir == "" {
		cfg.Paths.ProcessedDir = filepath.Join(cfg.Paths.DataDir, "processed")
	}
	if cfg.Paths.IndexDir == "" {
		cfg.Paths.IndexDir = filepath.Join(cfg.Paths.DataDir, "index")
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = filepath.Join(cfg.Paths.DataDir, "outputs")
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = d.Chunker.Type
	}
	if cfg.Chunker.WindowSize == 0 {
		cfg.Chunker.WindowSize = d.Chunker.WindowSize
	}
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = d.Embedder.Provider
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = d.Embedder.BatchSize
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = d.Embedder.TimeoutSecs
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = d.VectorStore.Type
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = d.VectorStore.Collection
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = filepath.Join(cfg.Paths.IndexDir, "vectors.db")
	}
	if cfg.Generator.Provider == "" {
		cfg.Generator.Provider = d.Generator.Provider
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = d.Generator.TimeoutSecs
	}
	if cfg.OCR.Command == "" {
		cfg.OCR.Command = d.OCR.Command
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = d.OCR.Language
	}
	if cfg.OCR.DPI == 0 {
		cfg.OCR.DPI = d.OCR.DPI
	}
	if cfg.PDF.Pattern == "" {
		cfg.PDF.Pattern = d.PDF.Pattern
	}
	if cfg.PDF.ScannedThreshold == 0 {
		cfg.PDF.ScannedThreshold = d.PDF.ScannedThreshold
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = d.Retrieval.TopK
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = d.Server.Addr
	}
}

func (c *Config) resolvePaths() error {
	for _, p := range []*string{
		&c.Paths.DataDir, &c.Paths.RawDir, &c.Paths.ProcessedDir,
		&c.Paths.IndexDir, &c.Paths.OutputDir, &c.VectorStore.Path,
	} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Chunker.WindowSize <= 0 {
		return fmt.Errorf("chunker.window_size must be positive, got %d", c.Chunker.WindowSize)
	}
	if c.Chunker.Overlap < 0 {
		return fmt.Errorf("chunker.overlap must not be negative, got %d", c.Chunker.Overlap)
	}
	switch c.Chunker.Type {
	case "window", "recursive":
	default:
		return fmt.Errorf("unknown chunker.type %q", c.Chunker.Type)
	}
	switch c.Embedder.Provider {
	case "ollama", "hashing":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("embedder.provider gemini requires GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown embedder.provider %q", c.Embedder.Provider)
	}
	switch c.VectorStore.Type {
	case "sqlite", "chroma", "memory":
	default:
		return fmt.Errorf("unknown vector_store.type %q", c.VectorStore.Type)
	}
	switch c.Generator.Provider {
	case "ollama":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("generator.provider gemini requires GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown generator.provider %q", c.Generator.Provider)
	}
	if c.OCR.DPI <= 0 {
		return fmt.Errorf("ocr.dpi must be positive, got %v", c.OCR.DPI)
	}
	return nil
}

func (c *Config) EmbedderTimeout() time.Duration {
	return time.Duration(c.Embedder.TimeoutSecs) * time.Second
}

func (c *Config) GeneratorTimeout() time.Duration {
	return time.Duration(c.Generator.TimeoutSecs) * time.Second
}
