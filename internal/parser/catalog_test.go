package parser

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"workorder-rag/internal/docstore"
	"workorder-rag/internal/models"
)

const catalogCSV = "Categoria,Código SAP,Descrição\n" +
	"Ferramentas,FER-001,Chave de torque\n" +
	",FER-002,Alicate isolado\n" +
	"EPI,EPI-010,Luva de protecao\n"

func TestExtractCatalog_CSVCarriesCategoryForward(t *testing.T) {
	catalog, err := ExtractCatalog("equipamentos.csv", []byte(catalogCSV))
	require.NoError(t, err)

	assert.Equal(t, []models.CatalogEntry{
		{Category: "Ferramentas", Code: "FER-001", Description: "Chave de torque"},
		{Category: "Ferramentas", Code: "FER-002", Description: "Alicate isolado"},
		{Category: "EPI", Code: "EPI-010", Description: "Luva de protecao"},
	}, catalog.Entries)
	assert.True(t, catalog.Has("FER-002"))
	assert.False(t, catalog.Has("fer-002"))
}

func TestExtractCatalog_CSVVariants(t *testing.T) {
	tests := map[string]struct {
		data string
		want []models.CatalogEntry
	}{
		"semicolon-and-bom": {
			data: "\xef\xbb\xbfcodigo;descricao;categoria\nM-1;Motor WEG W22;Motores\n",
			want: []models.CatalogEntry{{Category: "Motores", Code: "M-1", Description: "Motor WEG W22"}},
		},
		"no-header-positional": {
			data: "Motores,M-1,Motor\n,M-2,Redutor\n",
			want: []models.CatalogEntry{
				{Category: "Motores", Code: "M-1", Description: "Motor"},
				{Category: "Motores", Code: "M-2", Description: "Redutor"},
			},
		},
		"rows-without-code-skipped": {
			data: "category,code,description\nTools,,\nTools,T-1,Wrench\n",
			want: []models.CatalogEntry{{Category: "Tools", Code: "T-1", Description: "Wrench"}},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			catalog, err := ExtractCatalog("catalog.csv", []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, catalog.Entries)
		})
	}
}

func TestExtractCatalog_Empty(t *testing.T) {
	_, err := ExtractCatalog("equipamentos.csv", []byte("categoria,codigo,descricao\n"))
	assert.ErrorIs(t, err, errEmpty)

	_, err = ExtractCatalog("equipamentos.json", []byte("{}"))
	assert.Error(t, err)
}

func TestExtractCatalog_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Equipamentos")
	require.NoError(t, err)
	for _, values := range [][]string{
		{"Categoria", "Codigo", "Descricao"},
		{"Ferramentas", "FER-001", "Chave de torque"},
		{"", "FER-002", "Alicate isolado"},
	} {
		row := sh.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	catalog, err := ExtractCatalog("equipamentos.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, catalog.Entries, 2)
	assert.Equal(t, "Ferramentas", catalog.Entries[1].Category)
	assert.Equal(t, "FER-002", catalog.Entries[1].Code)
}

func TestExtractCatalog_Excelize(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Codigo", "Descricao"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"M-1", "Motor"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	catalog, err := ExtractCatalog("equipamentos.xlsm", buf.Bytes())
	require.NoError(t, err)
	// without a category column the sheet name is used
	assert.Equal(t, []models.CatalogEntry{{Category: "Sheet1", Code: "M-1", Description: "Motor"}}, catalog.Entries)
}

func TestParseCatalog(t *testing.T) {
	store := docstore.NewMemory(map[string][]byte{"equipamentos.csv": []byte(catalogCSV)})

	catalog, doc, err := ParseCatalog(context.Background(), store, "equipamentos.csv")
	require.NoError(t, err)
	assert.Len(t, catalog.Entries, 3)
	assert.Equal(t, models.KindCatalog, doc.Kind)
	assert.Equal(t, "equipamentos.csv", doc.ID)
	assert.Equal(t, catalog.Text(), doc.Text)

	_, _, err = ParseCatalog(context.Background(), store, "missing.csv")
	var extractionErr *models.ExtractionError
	assert.True(t, errors.As(err, &extractionErr))
}
