package models

const (
	CatalogBegin     = "=== CATALOGO DE EQUIPAMENTOS ==="
	CatalogEnd       = "=== FIM DO CATALOGO DE EQUIPAMENTOS ==="
	FragmentLabel    = "[Trecho %d] fonte: %s #%d"
	CatalogLabel     = "[Catalogo completo de equipamentos]"
	CodeFenceRegex   = "(?s)^\\s*```[a-zA-Z]*\\s*\n?(.*?)\\s*```\\s*$"
	ContextSeparator = "\n---\n"
)

var (
	// WorkOrderPromptTemplate takes the JSON schema, the assembled context and
	// the problem description, in that order.
	WorkOrderPromptTemplate = `Você é um especialista em análise de normas técnicas e segurança.
Use o conteúdo dos documentos fornecidos para responder problemas específicos de manutenção.
Suas respostas devem ser em português e seguir estritamente o JSON Schema abaixo:
%s

Regras:
- Cada passo deve ter "ordem" sequencial começando em 1, descrição detalhada, justificativa baseada na norma, medidas de segurança e duração (ex: "20min").
- "equipamentos_necessarios" e "equipamentos" só podem conter itens do catálogo de equipamentos fornecido, usando o código exatamente como aparece.
- "prioridade" deve ser um dos valores: low, medium, high, maximum.
- Responda apenas com o objeto JSON.
Mantenha suas respostas técnicas e precisas, fundamentadas no conteúdo dos documentos.

Contexto:
%s

Problema: %s
Resposta:`

	// WorkOrderSchema is the JSON Schema the model output must follow.
	WorkOrderSchema = `{
  "type": "object",
  "required": ["ordem_servico"],
  "additionalProperties": false,
  "properties": {
    "ordem_servico": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["problema", "passos", "equipamentos_necessarios", "observacoes", "referencias", "prioridade"],
        "additionalProperties": false,
        "properties": {
          "problema": {"type": "string"},
          "passos": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["ordem", "descricao", "justificativa", "medidas_seguranca", "duracao"],
              "additionalProperties": false,
              "properties": {
                "ordem": {"type": "integer", "minimum": 1},
                "descricao": {"type": "string"},
                "justificativa": {"type": "string"},
                "medidas_seguranca": {"type": "array", "items": {"type": "string"}},
                "duracao": {"type": "string"},
                "equipamentos": {"$ref": "#/$defs/equipamentos"}
              }
            }
          },
          "equipamentos_necessarios": {"$ref": "#/$defs/equipamentos"},
          "observacoes": {"type": "array", "items": {"type": "string"}},
          "referencias": {"type": "array", "items": {"type": "string"}},
          "prioridade": {"type": "string", "enum": ["low", "medium", "high", "maximum"]}
        }
      }
    }
  },
  "$defs": {
    "equipamentos": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["codigo", "descricao", "quantidade"],
        "additionalProperties": false,
        "properties": {
          "codigo": {"type": "string"},
          "descricao": {"type": "string"},
          "quantidade": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`
)
