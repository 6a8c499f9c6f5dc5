package llmservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"workorder-rag/internal/config"
	"workorder-rag/internal/models"
)

// Generator asks the model for a work order and validates the answer.
type Generator struct {
	model       Model
	temperature float64
	maxTokens   int
}

func NewGenerator(model Model, llmConfig *config.LLMConfig) *Generator {
	return &Generator{
		model:       model,
		temperature: llmConfig.Temperature,
		maxTokens:   llmConfig.MaxTokens,
	}
}

// BuildPrompt fills the instruction template with the schema, the assembled
// context and the problem.
func BuildPrompt(promptContext, problem string) string {
	return fmt.Sprintf(models.WorkOrderPromptTemplate, models.WorkOrderSchema, promptContext, problem)
}

// Generate makes a single model call and returns the validated work order.
func (g *Generator) Generate(ctx context.Context, promptContext, problem string, catalog *models.Catalog) (*models.WorkOrder, error) {
	prompt := BuildPrompt(promptContext, problem)
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	log.Debug().Int("prompt_chars", len(prompt)).Msg("Generating work order")
	res, err := g.model.GenerateContent(ctx, messages,
		llms.WithTemperature(g.temperature),
		llms.WithMaxTokens(g.maxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, &models.GenerationServiceError{Err: err}
	}
	if res == nil || len(res.Choices) == 0 {
		return nil, &models.GenerationServiceError{Err: errors.New("model returned no choices")}
	}

	order, err := Validate(res.Choices[0].Content, catalog)
	if err != nil {
		return nil, err
	}
	log.Info().Int("problems", len(order.Problems)).Str("priority", string(order.HighestPriority())).Msg("Generated work order")
	return order, nil
}
