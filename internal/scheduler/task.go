package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"workorder-rag/internal/models"
)

// defaultStepDuration stands in for durations the model wrote as free text.
const defaultStepDuration = 30 * time.Minute

var requiredExperience = map[models.Priority]float64{
	models.PriorityLow:     0.5,
	models.PriorityMedium:  0.5,
	models.PriorityHigh:    0.75,
	models.PriorityMaximum: 1,
}

var durationRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(horas|hora|hrs|hr|h|minutos|minuto|mins|min|m)?`)

// ParseDuration reads step durations such as "20min", "1h30", "2 horas" or
// "1 hora e 15 minutos". A bare number is taken as minutes.
func ParseDuration(s string) (time.Duration, error) {
	text := norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))
	matches := durationRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("no duration in %q", s)
	}
	var total time.Duration
	for _, m := range matches {
		value, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		unit := time.Minute
		if strings.HasPrefix(m[2], "h") {
			unit = time.Hour
		}
		total += time.Duration(value * float64(unit))
	}
	return total, nil
}

// TaskFromWorkOrder turns a stored order into a schedulable task. Workload is
// the summed step duration in minutes.
func TaskFromWorkOrder(order *models.WorkOrder) Task {
	var total time.Duration
	for _, p := range order.Problems {
		for _, s := range p.Steps {
			d, err := ParseDuration(s.Duration)
			if err != nil {
				log.Warn().Err(err).Str("order", order.ID).Int("step", s.Order).Msg("Using default step duration")
				d = defaultStepDuration
			}
			total += d
		}
	}

	name := order.ID
	if name == "" && len(order.Problems) > 0 {
		name = order.Problems[0].Description
	}
	return Task{
		Name:               name,
		Workload:           total.Minutes(),
		RequiredExperience: requiredExperience[order.HighestPriority()],
		Date:               order.CreatedAt,
	}
}
