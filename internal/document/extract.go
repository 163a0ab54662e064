// Package document reads knowledge source files into plain text.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

const (
	// MaxPDFPages limits the number of pages to process
	MaxPDFPages = 500

	// MaxExtractedTextSize limits the extracted text size (8MB)
	MaxExtractedTextSize = 8 * 1024 * 1024
)

// ErrUnsupportedFormat is returned for extensions other than .pdf, .txt and .md
var ErrUnsupportedFormat = errors.New("unsupported knowledge source format")

// ExtractText returns the plain text of the file at path
func ExtractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ExtractPDFText(data)
	case ".txt", ".md", ".markdown":
		return cleanText(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ExtractPDFText concatenates the text of every page. Pages that fail to
// extract are skipped rather than failing the document.
func ExtractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	totalPages := reader.NumPage()
	if totalPages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}
	if totalPages > MaxPDFPages {
		return "", fmt.Errorf("PDF has too many pages (%d), max allowed is %d", totalPages, MaxPDFPages)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if cleaned := cleanText(text); cleaned != "" {
			sb.WriteString(cleaned)
			sb.WriteString("\n")
		}
		if sb.Len() > MaxExtractedTextSize {
			break
		}
	}

	out := sb.String()
	if len(out) > MaxExtractedTextSize {
		out = out[:MaxExtractedTextSize]
	}
	return strings.TrimSpace(out), nil
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(normalizeWhitespace(text))
}

// normalizeWhitespace collapses runs of spaces and tabs while keeping newlines
func normalizeWhitespace(text string) string {
	var result strings.Builder
	lastWasSpace := false

	for _, r := range text {
		switch {
		case r == '\n':
			result.WriteRune('\n')
			lastWasSpace = false
		case unicode.IsSpace(r):
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		default:
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}
