package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable is returned when the bytes cannot be parsed as a PDF.
var ErrUnreadable = errors.New("pdf is unreadable")

const pageSeparator = "\n\n"

type Document struct {
	Text  string
	Pages int
}

// ExtractText pulls the plain text of every page in order. Pages are joined
// with a blank line so page breaks become paragraph breaks downstream. A PDF
// with no extractable text yields an empty Text and a nil error.
func ExtractText(data []byte) (doc Document, err error) {
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: empty file", ErrUnreadable)
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc = Document{}
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	total := reader.NumPage()
	parts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}

	return Document{
		Text:  strings.Join(parts, pageSeparator),
		Pages: total,
	}, nil
}
