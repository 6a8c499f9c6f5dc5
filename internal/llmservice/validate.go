package llmservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"workorder-rag/internal/models"
)

var codeFenceRe = regexp.MustCompile(models.CodeFenceRegex)

// wire types use pointers so absent required fields can be told apart from
// empty ones.
type wireOrder struct {
	Problems *[]wireProblem `json:"ordem_servico"`
}

type wireProblem struct {
	Description  *string             `json:"problema"`
	Steps        *[]wireStep         `json:"passos"`
	Equipment    *[]models.Equipment `json:"equipamentos_necessarios"`
	Observations *[]string           `json:"observacoes"`
	References   *[]string           `json:"referencias"`
	Priority     *string             `json:"prioridade"`
}

type wireStep struct {
	Order          *int               `json:"ordem"`
	Description    *string            `json:"descricao"`
	Justification  *string            `json:"justificativa"`
	SafetyMeasures *[]string          `json:"medidas_seguranca"`
	Duration       *string            `json:"duracao"`
	Equipment      []models.Equipment `json:"equipamentos"`
}

type validator struct {
	catalog    *models.Catalog
	violations []string
}

func (v *validator) fail(format string, args ...any) {
	v.violations = append(v.violations, fmt.Sprintf(format, args...))
}

// Validate decodes raw model output into a work order. Any deviation from the
// schema, including equipment codes absent from catalog, fails with a
// ResponseSchemaError; nothing is coerced into a partial order.
func Validate(raw string, catalog *models.Catalog) (*models.WorkOrder, error) {
	body := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(body); m != nil {
		body = m[1]
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()
	var wire wireOrder
	if err := dec.Decode(&wire); err != nil {
		return nil, &models.ResponseSchemaError{Violations: []string{"invalid json: " + err.Error()}, Raw: raw}
	}
	if dec.More() {
		return nil, &models.ResponseSchemaError{Violations: []string{"trailing data after json object"}, Raw: raw}
	}

	v := &validator{catalog: catalog}
	order := v.order(wire)
	if len(v.violations) > 0 {
		return nil, &models.ResponseSchemaError{Violations: v.violations, Raw: raw}
	}
	return order, nil
}

func (v *validator) order(wire wireOrder) *models.WorkOrder {
	if wire.Problems == nil || len(*wire.Problems) == 0 {
		v.fail("ordem_servico must contain at least one entry")
		return nil
	}
	order := &models.WorkOrder{}
	for i, wp := range *wire.Problems {
		order.Problems = append(order.Problems, v.problem(fmt.Sprintf("ordem_servico[%d]", i), wp))
	}
	return order
}

func (v *validator) problem(path string, wp wireProblem) models.Problem {
	var p models.Problem

	if wp.Description == nil || strings.TrimSpace(*wp.Description) == "" {
		v.fail("%s.problema is required", path)
	} else {
		p.Description = strings.TrimSpace(*wp.Description)
	}

	if wp.Priority == nil {
		v.fail("%s.prioridade is required", path)
	} else if prio, ok := models.ParsePriority(*wp.Priority); !ok {
		v.fail("%s.prioridade %q is not one of low, medium, high, maximum", path, *wp.Priority)
	} else {
		p.Priority = prio
	}

	if wp.Steps == nil || len(*wp.Steps) == 0 {
		v.fail("%s.passos must contain at least one step", path)
	} else {
		seen := map[int]bool{}
		for j, ws := range *wp.Steps {
			step := v.step(fmt.Sprintf("%s.passos[%d]", path, j), ws)
			if step.Order > 0 && seen[step.Order] {
				v.fail("%s.passos[%d].ordem %d is duplicated", path, j, step.Order)
			}
			seen[step.Order] = true
			p.Steps = append(p.Steps, step)
		}
		sort.SliceStable(p.Steps, func(a, b int) bool { return p.Steps[a].Order < p.Steps[b].Order })
	}

	if wp.Equipment == nil {
		v.fail("%s.equipamentos_necessarios is required", path)
	} else {
		p.Equipment = v.equipment(path+".equipamentos_necessarios", *wp.Equipment)
	}
	p.Observations = v.texts(path+".observacoes", wp.Observations)
	p.References = v.texts(path+".referencias", wp.References)
	return p
}

func (v *validator) step(path string, ws wireStep) models.Step {
	var s models.Step
	if ws.Order == nil || *ws.Order < 1 {
		v.fail("%s.ordem must be a positive integer", path)
	} else {
		s.Order = *ws.Order
	}
	if ws.Description == nil || strings.TrimSpace(*ws.Description) == "" {
		v.fail("%s.descricao is required", path)
	} else {
		s.Description = strings.TrimSpace(*ws.Description)
	}
	if ws.Justification == nil {
		v.fail("%s.justificativa is required", path)
	} else {
		s.Justification = strings.TrimSpace(*ws.Justification)
	}
	if ws.Duration == nil {
		v.fail("%s.duracao is required", path)
	} else {
		s.Duration = strings.TrimSpace(*ws.Duration)
	}
	s.SafetyMeasures = v.texts(path+".medidas_seguranca", ws.SafetyMeasures)
	if len(ws.Equipment) > 0 {
		s.Equipment = v.equipment(path+".equipamentos", ws.Equipment)
	}
	return s
}

// equipment checks codes against the catalog and fills missing descriptions
// from it.
func (v *validator) equipment(path string, list []models.Equipment) []models.Equipment {
	out := make([]models.Equipment, 0, len(list))
	for i, e := range list {
		entry, ok := v.catalog.Lookup(e.Code)
		if !ok {
			v.fail("%s[%d].codigo %q is not in the equipment catalog", path, i, e.Code)
			continue
		}
		if e.Quantity < 1 {
			v.fail("%s[%d].quantidade must be at least 1", path, i)
		}
		if strings.TrimSpace(e.Description) == "" {
			e.Description = entry.Description
		}
		out = append(out, e)
	}
	return out
}

func (v *validator) texts(path string, list *[]string) []string {
	if list == nil {
		v.fail("%s is required", path)
		return nil
	}
	out := make([]string, 0, len(*list))
	for _, s := range *list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
