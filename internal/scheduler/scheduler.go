package scheduler

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	experienceWeight = 0.2
	workloadWeight   = 1 - experienceWeight
)

// HistoryEntry records a task given to a technician.
type HistoryEntry struct {
	Task string    `yaml:"task" json:"task"`
	Date time.Time `yaml:"date" json:"date"`
}

// Technician is a candidate assignee. Experience is in [0,1]; Workload is in
// minutes.
type Technician struct {
	ID         string         `yaml:"id" json:"id"`
	Name       string         `yaml:"name" json:"name"`
	Experience float64        `yaml:"experience" json:"experience"`
	Workload   float64        `yaml:"workload" json:"workload"`
	History    []HistoryEntry `yaml:"history" json:"history,omitempty"`
}

type Task struct {
	Name               string    `json:"name"`
	Workload           float64   `json:"workload"`
	RequiredExperience float64   `json:"required_experience"`
	Date               time.Time `json:"date"`
}

type Assignment struct {
	Task           Task   `json:"task"`
	TechnicianID   string `json:"technician_id"`
	TechnicianName string `json:"technician_name"`
}

// Roster is the technician file read by the schedule command.
type Roster struct {
	MaxWorkload float64      `yaml:"max_workload"`
	Technicians []Technician `yaml:"technicians"`
}

func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	if roster.MaxWorkload <= 0 {
		return nil, fmt.Errorf("roster max_workload must be positive, got %v", roster.MaxWorkload)
	}
	return &roster, nil
}

// Assign walks tasks in order and gives each one to the least loaded suitable
// technician. Tasks nobody can take are left out. The technicians slice is
// not modified; the returned roster carries the updated workloads.
func Assign(technicians []Technician, tasks []Task, maxWorkload float64) ([]Assignment, []Technician) {
	roster := make([]Technician, len(technicians))
	for i, t := range technicians {
		t.History = append([]HistoryEntry(nil), t.History...)
		roster[i] = t
	}

	var assignments []Assignment
	for _, task := range tasks {
		candidates := suitable(roster, task, maxWorkload)
		if len(candidates) == 0 {
			log.Warn().Str("task", task.Name).Msg("No technician available for task")
			continue
		}
		tech := &roster[candidates[0]]
		date := task.Date
		if date.IsZero() {
			date = time.Now()
		}
		tech.Workload += task.Workload
		tech.History = append(tech.History, HistoryEntry{Task: task.Name, Date: date})
		assignments = append(assignments, Assignment{Task: task, TechnicianID: tech.ID, TechnicianName: tech.Name})
		log.Debug().Str("task", task.Name).Str("technician", tech.Name).Float64("workload", tech.Workload).Msg("Assigned task")
	}
	return assignments, roster
}

// suitable returns indexes into roster ordered by preference.
func suitable(roster []Technician, task Task, maxWorkload float64) []int {
	var idx []int
	for i, t := range roster {
		if t.Experience < task.RequiredExperience {
			continue
		}
		if t.Workload+task.Workload >= maxWorkload {
			continue
		}
		if n := len(t.History); n > 0 && onWeekend(t.History[n-1].Date) {
			continue
		}
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return score(roster[idx[a]]) < score(roster[idx[b]])
	})
	return idx
}

func score(t Technician) float64 {
	return experienceWeight*t.Experience + workloadWeight*t.Workload
}

func onWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
