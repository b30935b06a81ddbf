// Package extract turns uploaded documents into story text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnsupportedFormat is returned for documents no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor pulls plain text out of one document.
type Extractor interface {
	Extract(name string, r io.Reader) (string, error)
}

// FileError is a per-file extraction failure. Other files are unaffected.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// PlainText reads .txt and .md documents (and files without an extension).
// A UTF-8 or UTF-16 byte order mark selects the encoding; otherwise the
// content must be valid UTF-8.
type PlainText struct{}

var plainExtensions = map[string]bool{"": true, ".txt": true, ".text": true, ".md": true, ".markdown": true}

func (PlainText) Extract(name string, r io.Reader) (string, error) {
	if !plainExtensions[strings.ToLower(filepath.Ext(name))] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	if !hasUTF16BOM(raw) && !utf8.Valid(raw) {
		return "", errors.New("document is not valid UTF-8 text")
	}
	data, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return string(data), nil
}

func hasUTF16BOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xFF, 0xFE}) || bytes.HasPrefix(b, []byte{0xFE, 0xFF})
}

// Files extracts every path with x. Documents that fail, or contain only
// whitespace, are reported in errs and skipped. Texts keeps input order.
func Files(x Extractor, paths []string) (texts []string, errs []*FileError) {
	for _, path := range paths {
		text, err := file(x, path)
		if err != nil {
			errs = append(errs, &FileError{Path: path, Err: err})
			continue
		}
		if strings.TrimSpace(text) == "" {
			errs = append(errs, &FileError{Path: path, Err: errors.New("document contains no text")})
			continue
		}
		texts = append(texts, text)
	}
	return texts, errs
}

func file(x Extractor, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return x.Extract(filepath.Base(path), f)
}

// Join combines document texts the way they are submitted as one story.
// Trailing line breaks are dropped so documents are separated by exactly
// one blank line; indentation is kept.
func Join(texts []string) string {
	parts := make([]string, len(texts))
	for i, text := range texts {
		parts[i] = strings.TrimRight(text, "\n")
	}
	return strings.Join(parts, "\n\n")
}
