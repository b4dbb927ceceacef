package chunker

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const paragraphSeparator = "\n\n"

var ErrInvalidArgument = errors.New("chunker: max length must be positive")

// Split breaks text into chunks of at most maxLength runes, cutting on blank
// lines where possible. A paragraph longer than maxLength is hard-sliced.
// Chunks are trimmed, never empty, and in document order.
func Split(text string, maxLength int) ([]string, error) {
	if maxLength <= 0 {
		return nil, ErrInvalidArgument
	}

	var (
		chunks     []string
		current    strings.Builder
		currentLen int
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentLen = 0
	}

	for _, para := range splitParagraphs(text) {
		paraLen := utf8.RuneCountInString(para)

		if paraLen > maxLength {
			flush()
			chunks = append(chunks, hardSlice(para, maxLength)...)
			continue
		}

		added := paraLen
		if currentLen > 0 {
			added += len(paragraphSeparator)
		}
		if currentLen+added > maxLength {
			flush()
			added = paraLen
		}

		if currentLen > 0 {
			current.WriteString(paragraphSeparator)
		}
		current.WriteString(para)
		currentLen += added
	}
	flush()

	return chunks, nil
}

// splitParagraphs splits on blank lines and drops whitespace-only paragraphs.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, paragraphSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// hardSlice cuts s into pieces of at most size runes with no regard for words.
func hardSlice(s string, size int) []string {
	runes := []rune(s)
	pieces := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}
