package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"workorder-rag/internal/models"
)

var priorityLabels = map[models.Priority]string{
	models.PriorityLow:     "Baixa",
	models.PriorityMedium:  "Média",
	models.PriorityHigh:    "Alta",
	models.PriorityMaximum: "Máxima",
}

// Markdown renders a printable work order.
func Markdown(order *models.WorkOrder) string {
	var b strings.Builder

	b.WriteString("# ORDEM DE SERVIÇO")
	if !order.CreatedAt.IsZero() {
		fmt.Fprintf(&b, " - %s", order.CreatedAt.Format("02/01/2006"))
	}
	b.WriteString("\n\n")
	if order.ID != "" {
		fmt.Fprintf(&b, "Nº %s\n\n", order.ID)
	}

	for _, p := range order.Problems {
		b.WriteString("## PROBLEMA\n\n")
		b.WriteString(p.Description)
		b.WriteString("\n\n")
		if label, ok := priorityLabels[p.Priority]; ok {
			fmt.Fprintf(&b, "**Prioridade:** %s\n\n", label)
		}

		b.WriteString("## PROCEDIMENTOS\n\n")
		for _, s := range p.Steps {
			fmt.Fprintf(&b, "### %d. %s\n\n", s.Order, s.Description)
			fmt.Fprintf(&b, "Justificativa: %s\n\n", s.Justification)
			fmt.Fprintf(&b, "Duração estimada: %s\n\n", s.Duration)
			if len(s.SafetyMeasures) > 0 {
				b.WriteString("Medidas de Segurança:\n\n")
				writeList(&b, s.SafetyMeasures)
			}
			if len(s.Equipment) > 0 {
				b.WriteString("Equipamentos necessários:\n\n")
				writeEquipment(&b, s.Equipment)
			}
		}

		if len(p.Equipment) > 0 {
			b.WriteString("## LISTA COMPLETA DE EQUIPAMENTOS\n\n")
			writeEquipment(&b, p.Equipment)
		}
		if len(p.Observations) > 0 {
			b.WriteString("## OBSERVAÇÕES\n\n")
			writeList(&b, p.Observations)
		}
		if len(p.References) > 0 {
			b.WriteString("## REFERÊNCIAS\n\n")
			writeList(&b, p.References)
		}
	}

	b.WriteString("---\n\n")
	b.WriteString("| Responsável pela execução | Responsável pela aprovação |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString("| ________________________ | ________________________ |\n")
	b.WriteString("| Data: \\_\\_\\_/\\_\\_\\_/\\_\\_\\_ | Data: \\_\\_\\_/\\_\\_\\_/\\_\\_\\_ |\n")
	return b.String()
}

// HTML converts the Markdown rendering of order into an HTML fragment.
func HTML(order *models.WorkOrder) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(order)), &buf); err != nil {
		return nil, fmt.Errorf("failed to render work order: %w", err)
	}
	return buf.Bytes(), nil
}

func writeList(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func writeEquipment(b *strings.Builder, list []models.Equipment) {
	b.WriteString("| Código SAP | Descrição | Quantidade |\n")
	b.WriteString("| --- | --- | ---: |\n")
	for _, e := range list {
		fmt.Fprintf(b, "| %s | %s | %d |\n", cell(e.Code), cell(e.Description), e.Quantity)
	}
	b.WriteString("\n")
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
