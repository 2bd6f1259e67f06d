// Package ocr runs tesseract over rendered page images and returns word
// boxes in image pixels.
package ocr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	DefaultCommand  = "tesseract"
	DefaultLanguage = "eng"
)

var ErrEngineUnavailable = errors.New("ocr engine not available")

// Word is a recognised word. Left/Top/Width/Height are in image pixels.
type Word struct {
	Text       string
	Left       int
	Top        int
	Width      int
	Height     int
	Confidence float64
}

// BBox returns the word box scaled down by zoom (pixels per point).
func (w Word) BBox(zoom float64) []float64 {
	if zoom <= 0 {
		zoom = 1
	}
	return []float64{
		float64(w.Left) / zoom,
		float64(w.Top) / zoom,
		float64(w.Left+w.Width) / zoom,
		float64(w.Top+w.Height) / zoom,
	}
}

type Tesseract struct {
	Command  string
	Language string
}

func NewTesseract(command, language string) *Tesseract {
	if command == "" {
		command = DefaultCommand
	}
	if language == "" {
		language = DefaultLanguage
	}
	return &Tesseract{Command: command, Language: language}
}

// Available reports whether the tesseract binary can be found.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.Command)
	return err == nil
}

func (t *Tesseract) Recognize(ctx context.Context, imagePath string) ([]Word, error) {
	if !t.Available() {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrEngineUnavailable, t.Command)
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Command, imagePath, "stdout", "-l", t.Language, "tsv")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("tesseract failed on %s: %w: %s", imagePath, err, strings.TrimSpace(stderr.String()))
	}
	return ParseTSV(out)
}

// ParseTSV reads tesseract's tsv output and keeps word-level rows with text.
func ParseTSV(data []byte) ([]Word, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var words []Word
	header := true
	for sc.Scan() {
		line := sc.Text()
		if header {
			header = false
			if strings.HasPrefix(line, "level") {
				continue
			}
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(strings.Join(cols[11:], "\t"))
		if text == "" {
			continue
		}
		nums := make([]int, 4)
		ok := true
		for i := range nums {
			v, err := strconv.Atoi(cols[6+i])
			if err != nil {
				ok = false
				break
			}
			nums[i] = v
		}
		if !ok {
			continue
		}
		conf, _ := strconv.ParseFloat(cols[10], 64)
		words = append(words, Word{
			Text:       text,
			Left:       nums[0],
			Top:        nums[1],
			Width:      nums[2],
			Height:     nums[3],
			Confidence: conf,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tesseract output: %w", err)
	}
	return words, nil
}
