package models

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Priority is the urgency level of a work order problem.
type Priority string

const (
	PriorityLow     Priority = "low"
	PriorityMedium  Priority = "medium"
	PriorityHigh    Priority = "high"
	PriorityMaximum Priority = "maximum"
)

// Priorities lists the accepted values in ascending urgency.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityMaximum}

var priorityAliases = map[string]Priority{
	"low":     PriorityLow,
	"baixa":   PriorityLow,
	"medium":  PriorityMedium,
	"media":   PriorityMedium,
	"média":   PriorityMedium,
	"high":    PriorityHigh,
	"alta":    PriorityHigh,
	"maximum": PriorityMaximum,
	"maxima":  PriorityMaximum,
	"máxima":  PriorityMaximum,
}

// ParsePriority maps a model supplied value, English or Portuguese, onto the
// enumerated set.
func ParsePriority(s string) (Priority, bool) {
	p, ok := priorityAliases[norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))]
	return p, ok
}

// Equipment is a catalog item required by a step or a problem.
type Equipment struct {
	Code        string `json:"codigo"`
	Description string `json:"descricao"`
	Quantity    int    `json:"quantidade"`
}

// Step is one ordered maintenance action.
type Step struct {
	Order          int         `json:"ordem"`
	Description    string      `json:"descricao"`
	Justification  string      `json:"justificativa"`
	SafetyMeasures []string    `json:"medidas_seguranca"`
	Duration       string      `json:"duracao"`
	Equipment      []Equipment `json:"equipamentos,omitempty"`
}

// Problem is a single entry of a work order.
type Problem struct {
	Description  string      `json:"problema"`
	Steps        []Step      `json:"passos"`
	Equipment    []Equipment `json:"equipamentos_necessarios"`
	Observations []string    `json:"observacoes"`
	References   []string    `json:"referencias"`
	Priority     Priority    `json:"prioridade"`
}

// WorkOrder is the validated answer produced for one request.
type WorkOrder struct {
	ID        string    `json:"id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Problems  []Problem `json:"ordem_servico"`
}

// EquipmentCodes returns every equipment code referenced by the order, in
// order of appearance, without duplicates.
func (w *WorkOrder) EquipmentCodes() []string {
	seen := map[string]bool{}
	var codes []string
	add := func(list []Equipment) {
		for _, e := range list {
			if !seen[e.Code] {
				seen[e.Code] = true
				codes = append(codes, e.Code)
			}
		}
	}
	for _, p := range w.Problems {
		for _, s := range p.Steps {
			add(s.Equipment)
		}
		add(p.Equipment)
	}
	return codes
}

// HighestPriority returns the most urgent priority across problems.
func (w *WorkOrder) HighestPriority() Priority {
	best := -1
	for _, p := range w.Problems {
		for i, candidate := range Priorities {
			if candidate == p.Priority && i > best {
				best = i
			}
		}
	}
	if best < 0 {
		return ""
	}
	return Priorities[best]
}
