package parser

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"workorder-rag/internal/docstore"
	"workorder-rag/internal/models"
)

var errEmpty = errors.New("no text extracted")

// ParseDocument fetches a report document and extracts its plain text.
func ParseDocument(ctx context.Context, store docstore.Store, ref string) (models.Document, error) {
	data, err := store.Fetch(ctx, ref)
	if err != nil {
		return models.Document{}, &models.ExtractionError{Source: ref, Err: err}
	}
	text, err := ExtractText(ref, data)
	if err != nil {
		return models.Document{}, &models.ExtractionError{Source: ref, Err: err}
	}
	log.Debug().Str("source", ref).Int("chars", len(text)).Msg("Extracted document")
	return models.Document{ID: ref, Kind: models.KindReport, Text: text}, nil
}

// ExtractText dispatches on the file extension of name.
func ExtractText(name string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf":
		text, err = parsePDF(data)
	case ".docx":
		text, err = parseDOCX(data)
	case ".txt", ".md":
		text = string(data)
	default:
		return "", fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return "", err
	}
	text = Normalize(text)
	if strings.TrimSpace(text) == "" {
		return "", errEmpty
	}
	return text, nil
}

// Normalize applies NFC, unifies line endings and drops NUL bytes.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	return norm.NFC.String(text)
}

// parsePDF recovers from panics raised by malformed page streams.
func parsePDF(data []byte) (text string, err error) {
	defer recoverParse("pdf", &err)

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}
	return JoinPages(pages), nil
}

// JoinPages concatenates page texts in order, inserting a newline where a
// page boundary would otherwise glue two words together.
func JoinPages(pages []string) string {
	var b strings.Builder
	prev := ""
	for _, page := range pages {
		if page == "" {
			continue
		}
		if prev != "" && !endsWithSpace(prev) && !startsWithSpace(page) {
			b.WriteString("\n")
		}
		b.WriteString(page)
		prev = page
	}
	return b.String()
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}

// recoverParse turns a panic inside a third-party decoder into an error.
func recoverParse(format string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed %s: %v", format, r)
	}
}

func parseDOCX(data []byte) (text string, err error) {
	defer recoverParse("docx", &err)

	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	// in-memory archives hold no file handle, nothing to close

	return extractTextFromXML(r.Editable().GetContent())
}

// extractTextFromXML collects w:t runs of a WordprocessingML body, one line
// per paragraph.
func extractTextFromXML(xmlContent string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(xmlContent))
	dec.Strict = false

	var (
		text   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to decode docx body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				text.WriteString("\t")
			case "br":
				text.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return text.String(), nil
}
