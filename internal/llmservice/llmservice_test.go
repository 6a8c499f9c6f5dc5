package llmservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"workorder-rag/internal/config"
	"workorder-rag/internal/models"
)

var testCatalog = &models.Catalog{Entries: []models.CatalogEntry{
	{Category: "Ferramentas", Code: "FER-001", Description: "Chave de torque"},
	{Category: "Ferramentas", Code: "FER-002", Description: "Alicate isolado"},
	{Category: "EPI", Code: "EPI-010", Description: "Luva de protecao"},
}}

const validOrder = `{
  "ordem_servico": [{
    "problema": "Prensa hidraulica precisa de manutencao",
    "passos": [
      {"ordem": 2, "descricao": "Inspecionar protecoes", "justificativa": "NR-12 item 12.38", "medidas_seguranca": ["Usar luvas"], "duracao": "20min",
       "equipamentos": [{"codigo": "EPI-010", "descricao": "", "quantidade": 2}]},
      {"ordem": 1, "descricao": "Bloquear energia", "justificativa": "NR-12 item 12.11", "medidas_seguranca": ["Etiquetar"], "duracao": "10min"}
    ],
    "equipamentos_necessarios": [{"codigo": "FER-001", "descricao": "Chave de torque", "quantidade": 1}],
    "observacoes": ["Registrar no livro da maquina", " "],
    "referencias": ["NR-12"],
    "prioridade": "alta"
  }]
}`

func TestValidate_Valid(t *testing.T) {
	order, err := Validate(validOrder, testCatalog)
	require.NoError(t, err)
	require.Len(t, order.Problems, 1)

	p := order.Problems[0]
	assert.Equal(t, models.PriorityHigh, p.Priority)
	require.Len(t, p.Steps, 2)
	assert.Equal(t, 1, p.Steps[0].Order)
	assert.Equal(t, "Bloquear energia", p.Steps[0].Description)
	assert.Equal(t, "Luva de protecao", p.Steps[1].Equipment[0].Description)
	assert.Equal(t, []string{"Registrar no livro da maquina"}, p.Observations)
	assert.Equal(t, []string{"EPI-010", "FER-001"}, order.EquipmentCodes())
}

func TestValidate_CodeFence(t *testing.T) {
	order, err := Validate("```json\n"+validOrder+"\n```", testCatalog)
	require.NoError(t, err)
	assert.Len(t, order.Problems, 1)
}

func TestValidate_Rejections(t *testing.T) {
	tests := map[string]struct {
		raw  string
		want string
	}{
		"unknown-equipment-code": {
			raw:  strings.Replace(validOrder, `"FER-001"`, `"FER-999"`, 1),
			want: `"FER-999" is not in the equipment catalog`,
		},
		"code-not-verbatim": {
			raw:  strings.Replace(validOrder, `"FER-001"`, `"fer-001"`, 1),
			want: "is not in the equipment catalog",
		},
		"unknown-step-equipment": {
			raw:  strings.Replace(validOrder, `"EPI-010"`, `"EPI-000"`, 1),
			want: "passos[0].equipamentos[0].codigo",
		},
		"bad-priority": {
			raw:  strings.Replace(validOrder, `"alta"`, `"urgente"`, 1),
			want: "prioridade",
		},
		"zero-quantity": {
			raw:  strings.Replace(validOrder, `"quantidade": 1`, `"quantidade": 0`, 1),
			want: "quantidade must be at least 1",
		},
		"missing-references": {
			raw:  strings.Replace(validOrder, `"referencias": ["NR-12"],`, ``, 1),
			want: "referencias is required",
		},
		"duplicate-step-order": {
			raw:  strings.Replace(validOrder, `"ordem": 2`, `"ordem": 1`, 1),
			want: "duplicated",
		},
		"unknown-field": {
			raw:  strings.Replace(validOrder, `"problema":`, `"custo": 10, "problema":`, 1),
			want: "invalid json",
		},
		"empty-order": {
			raw:  `{"ordem_servico": []}`,
			want: "at least one entry",
		},
		"not-json": {
			raw:  "Claro! Aqui esta a ordem de servico.",
			want: "invalid json",
		},
		"no-steps": {
			raw:  `{"ordem_servico": [{"problema": "x", "passos": [], "equipamentos_necessarios": [], "observacoes": [], "referencias": [], "prioridade": "low"}]}`,
			want: "at least one step",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			order, err := Validate(tt.raw, testCatalog)
			assert.Nil(t, order)
			var schemaErr *models.ResponseSchemaError
			require.True(t, errors.As(err, &schemaErr), "got %v", err)
			assert.Contains(t, schemaErr.Error(), tt.want)
			assert.Equal(t, tt.raw, schemaErr.Raw)
		})
	}
}

func TestValidate_NilCatalogRejectsEquipment(t *testing.T) {
	_, err := Validate(validOrder, nil)
	var schemaErr *models.ResponseSchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

type fakeModel struct {
	content  string
	err      error
	noChoice bool
	prompts  []string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				f.prompts = append(f.prompts, text.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.noChoice {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content}}}, nil
}

func TestGenerator_Generate(t *testing.T) {
	model := &fakeModel{content: validOrder}
	g := NewGenerator(model, &config.LLMConfig{Temperature: 0.7, MaxTokens: 1500})

	order, err := g.Generate(context.Background(), "Contexto NR-12", "press machine needs maintenance", testCatalog)
	require.NoError(t, err)
	assert.Len(t, order.Problems, 1)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "Contexto NR-12")
	assert.Contains(t, model.prompts[0], "Problema: press machine needs maintenance")
	assert.Contains(t, model.prompts[0], `"ordem_servico"`)
}

func TestGenerator_Errors(t *testing.T) {
	tests := map[string]struct {
		model  *fakeModel
		target any
	}{
		"transport": {model: &fakeModel{err: errors.New("timeout")}, target: new(*models.GenerationServiceError)},
		"no-choice": {model: &fakeModel{noChoice: true}, target: new(*models.GenerationServiceError)},
		"schema":    {model: &fakeModel{content: `{"ordem_servico": []}`}, target: new(*models.ResponseSchemaError)},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			g := NewGenerator(tt.model, &config.LLMConfig{})
			order, err := g.Generate(context.Background(), "ctx", "problema", testCatalog)
			assert.Nil(t, order)
			assert.ErrorAs(t, err, tt.target)
		})
	}
}
