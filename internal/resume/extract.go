package resume

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
)

// MaxResumeChars bounds the resume text sent to the completion service.
const MaxResumeChars = 8000

var ErrUnsupportedDocument = errors.New("unsupported resume document")

func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF"))
}

// ExtractText returns the plain text of a PDF or text resume, truncated to MaxResumeChars.
func ExtractText(data []byte) (string, error) {
	var text string
	switch {
	case isPDF(data):
		t, err := extractPDF(data)
		if err != nil {
			return "", err
		}
		text = t
	case utf8.Valid(data):
		text = string(data)
	default:
		return "", ErrUnsupportedDocument
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text extracted from resume")
	}
	return truncate(text, MaxResumeChars), nil
}

func extractPDF(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var full strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		page, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", n+1, err)
		}
		full.WriteString(strings.TrimSpace(page))
		full.WriteString("\n\n")
		if full.Len() > MaxResumeChars*4 {
			break
		}
	}
	return full.String(), nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
