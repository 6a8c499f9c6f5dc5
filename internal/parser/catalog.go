package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"workorder-rag/internal/docstore"
	"workorder-rag/internal/models"
)

type column int

const (
	colCategory column = iota
	colCode
	colDescription
)

var headerAliases = map[string]column{
	"categoria":   colCategory,
	"category":    colCategory,
	"grupo":       colCategory,
	"tipo":        colCategory,
	"codigo":      colCode,
	"codigo sap":  colCode,
	"codigo_sap":  colCode,
	"cod":         colCode,
	"code":        colCode,
	"sap":         colCode,
	"sap code":    colCode,
	"descricao":   colDescription,
	"description": colDescription,
	"equipamento": colDescription,
	"item":        colDescription,
	"nome":        colDescription,
}

// sheet is a named block of rows from any tabular source.
type sheet struct {
	name string
	rows [][]string
}

type catalogParserState struct {
	columns  map[column]int
	category string
	entries  []models.CatalogEntry
}

// ParseCatalog fetches and parses the equipment catalog. The returned document
// carries the marker wrapped catalog text.
func ParseCatalog(ctx context.Context, store docstore.Store, ref string) (*models.Catalog, models.Document, error) {
	data, err := store.Fetch(ctx, ref)
	if err != nil {
		return nil, models.Document{}, &models.ExtractionError{Source: ref, Err: err}
	}
	catalog, err := ExtractCatalog(ref, data)
	if err != nil {
		return nil, models.Document{}, &models.ExtractionError{Source: ref, Err: err}
	}
	log.Debug().Str("source", ref).Int("entries", len(catalog.Entries)).Msg("Extracted catalog")
	doc := models.Document{ID: ref, Kind: models.KindCatalog, Text: catalog.Text()}
	return catalog, doc, nil
}

// ExtractCatalog reads csv, xlsx and excelize supported workbooks.
func ExtractCatalog(name string, data []byte) (*models.Catalog, error) {
	var (
		sheets []sheet
		err    error
	)
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		sheets, err = readCSV(data)
	case ".xlsx":
		sheets, err = readXLSX(data)
	case ".xlsm", ".xltx", ".xltm":
		sheets, err = readExcelize(data)
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", ext)
	}
	if err != nil {
		return nil, err
	}

	catalog := &models.Catalog{Source: name}
	for _, s := range sheets {
		catalog.Entries = append(catalog.Entries, parseSheet(s)...)
	}
	if len(catalog.Entries) == 0 {
		return nil, errEmpty
	}
	return catalog, nil
}

func readCSV(data []byte) ([]sheet, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if sep := sniffSeparator(data); sep != ',' {
		r.Comma = sep
	}

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		rows = append(rows, record)
	}
	return []sheet{{rows: rows}}, nil
}

// sniffSeparator picks ';' for spreadsheets exported with a Brazilian locale.
func sniffSeparator(data []byte) rune {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func readXLSX(data []byte) ([]sheet, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}

	var sheets []sheet
	for _, sh := range f.Sheets {
		s := sheet{name: sh.Name}
		for _, row := range sh.Rows {
			if row == nil {
				continue
			}
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			s.rows = append(s.rows, cells)
		}
		sheets = append(sheets, s)
	}
	return sheets, nil
}

func readExcelize(data []byte) ([]sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sheets []sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			log.Warn().Err(err).Str("sheet", name).Msg("Skipping unreadable sheet")
			continue
		}
		sheets = append(sheets, sheet{name: name, rows: rows})
	}
	return sheets, nil
}

// parseSheet turns rows into entries. The category of the last row that had
// one is carried forward onto rows that leave it empty.
func parseSheet(s sheet) []models.CatalogEntry {
	state := catalogParserState{category: s.name}
	start := locateHeader(s.rows, &state)
	for _, row := range s.rows[start:] {
		processCatalogRow(row, &state)
	}
	return state.entries
}

// locateHeader fills the column map and returns the first data row index.
// Without a recognisable header the columns are taken positionally.
func locateHeader(rows [][]string, state *catalogParserState) int {
	for i, row := range rows {
		columns := map[column]int{}
		for j, cell := range row {
			if col, ok := headerAliases[foldHeader(cell)]; ok {
				if _, seen := columns[col]; !seen {
					columns[col] = j
				}
			}
		}
		if _, ok := columns[colCode]; ok {
			state.columns = columns
			return i + 1
		}
	}
	state.columns = map[column]int{colCategory: 0, colCode: 1, colDescription: 2}
	return 0
}

func processCatalogRow(row []string, state *catalogParserState) {
	if category := cellAt(row, state.columns, colCategory); category != "" {
		state.category = category
	}
	code := cellAt(row, state.columns, colCode)
	if code == "" {
		return
	}
	state.entries = append(state.entries, models.CatalogEntry{
		Category:    state.category,
		Code:        code,
		Description: cellAt(row, state.columns, colDescription),
	})
}

func cellAt(row []string, columns map[column]int, col column) string {
	idx, ok := columns[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// foldHeader lowercases and strips diacritics so "Código SAP" matches
// "codigo sap".
func foldHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
