// Package document turns resumes and job descriptions into plain text.
package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
)

// MaxFileSize matches the upload limit of the interview setup.
const MaxFileSize = 5 << 20

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNoText            = errors.New("no text content found")
	ErrTooLarge          = errors.New("document exceeds 5MB limit")
)

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
}

// Extract reads the file at path and returns its text. The format follows the extension;
// files with an unknown extension are tried as pdf and then docx.
func Extract(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return extractPDF(path)
	case ext == ".docx":
		return extractDOCX(path)
	case textExtensions[ext]:
		return extractText(path)
	}

	if text, err := extractPDF(path); err == nil {
		return text, nil
	}
	if text, err := extractDOCX(path); err == nil {
		return text, nil
	}
	return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
}

// ExtractOrPlaceholder never fails. Unreadable documents become a bracketed placeholder
// so the interview can still be set up.
func ExtractOrPlaceholder(path string) (string, error) {
	text, err := Extract(path)
	if err != nil {
		return Placeholder(path), err
	}
	return text, nil
}

func Placeholder(path string) string {
	return fmt.Sprintf("[Could not extract text from %s]", filepath.Base(path))
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return clean(b.String())
}

// docx text lives in word/document.xml as <w:t> runs grouped into <w:p> paragraphs.
func extractDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document body: %w", err)
		}
		defer rc.Close()
		return paragraphs(rc)
	}

	return "", fmt.Errorf("docx: %w", ErrNoText)
}

func paragraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		b      strings.Builder
		inText bool
	)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document body: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteString("\t")
			case "br":
				b.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return clean(b.String())
}

func extractText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if utf8.Valid(raw) {
		return clean(string(raw))
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return clean(string(decoded))
}

// clean trims every line and drops blank ones.
func clean(text string) (string, error) {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return "", ErrNoText
	}
	return strings.Join(kept, "\n"), nil
}
