package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workorder-rag/internal/models"
)

var (
	monday   = time.Date(2024, 10, 14, 8, 0, 0, 0, time.UTC)
	saturday = time.Date(2024, 10, 19, 8, 0, 0, 0, time.UTC)
)

func TestAssign_PrefersLowestScore(t *testing.T) {
	techs := []Technician{
		{ID: "a", Name: "Ana", Experience: 1, Workload: 60},
		{ID: "b", Name: "Bruno", Experience: 0.75, Workload: 10},
		{ID: "c", Name: "Carla", Experience: 0.5, Workload: 0},
	}
	tasks := []Task{{Name: "troca de vedacao", Workload: 30, RequiredExperience: 0.75, Date: monday}}

	got, roster := Assign(techs, tasks, 480)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].TechnicianID)
	assert.Equal(t, 40.0, roster[1].Workload)
	require.Len(t, roster[1].History, 1)
	assert.Equal(t, "troca de vedacao", roster[1].History[0].Task)
}

func TestAssign_DoesNotMutateInput(t *testing.T) {
	techs := []Technician{{ID: "a", Experience: 1, History: []HistoryEntry{{Task: "x", Date: monday}}}}
	tasks := []Task{{Name: "t1", Workload: 30, Date: monday}, {Name: "t2", Workload: 30, Date: monday}}

	got, roster := Assign(techs, tasks, 480)
	assert.Len(t, got, 2)
	assert.Equal(t, 0.0, techs[0].Workload)
	assert.Len(t, techs[0].History, 1)
	assert.Equal(t, 60.0, roster[0].Workload)
	assert.Len(t, roster[0].History, 3)
}

func TestAssign_Filters(t *testing.T) {
	tests := map[string]struct {
		tech Technician
		task Task
	}{
		"insufficient-experience": {
			tech: Technician{ID: "a", Experience: 0.5},
			task: Task{Name: "t", Workload: 10, RequiredExperience: 0.75},
		},
		"workload-reaches-max": {
			tech: Technician{ID: "a", Experience: 1, Workload: 90},
			task: Task{Name: "t", Workload: 10},
		},
		"last-task-on-weekend": {
			tech: Technician{ID: "a", Experience: 1, History: []HistoryEntry{{Task: "x", Date: saturday}}},
			task: Task{Name: "t", Workload: 10},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, _ := Assign([]Technician{tt.tech}, []Task{tt.task}, 100)
			assert.Empty(t, got)
		})
	}
}

func TestAssign_WeekendOnlyExcludesThatTechnician(t *testing.T) {
	techs := []Technician{
		{ID: "weekend", Experience: 1, History: []HistoryEntry{{Task: "x", Date: saturday}}},
		{ID: "busy", Experience: 1, Workload: 50},
	}
	got, _ := Assign(techs, []Task{{Name: "t", Workload: 10, Date: monday}}, 100)
	require.Len(t, got, 1)
	assert.Equal(t, "busy", got[0].TechnicianID)
}

func TestAssign_StableOnTies(t *testing.T) {
	techs := []Technician{{ID: "first", Experience: 1}, {ID: "second", Experience: 1}}
	got, _ := Assign(techs, []Task{{Name: "t", Workload: 10, Date: monday}}, 100)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].TechnicianID)
}

func TestParseDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"20min":               20 * time.Minute,
		"1h30":                90 * time.Minute,
		"2 horas":             2 * time.Hour,
		"1 hora e 15 minutos": 75 * time.Minute,
		"1,5h":                90 * time.Minute,
		"45":                  45 * time.Minute,
		" 10 MIN ":            10 * time.Minute,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got, err := ParseDuration(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := ParseDuration("conforme necessario")
	assert.Error(t, err)
}

func TestTaskFromWorkOrder(t *testing.T) {
	order := &models.WorkOrder{
		ID:        "os-1",
		CreatedAt: monday,
		Problems: []models.Problem{
			{Priority: models.PriorityMedium, Steps: []models.Step{{Order: 1, Duration: "20min"}, {Order: 2, Duration: "1h"}}},
			{Priority: models.PriorityHigh, Steps: []models.Step{{Order: 1, Duration: "variavel"}}},
		},
	}

	task := TaskFromWorkOrder(order)
	assert.Equal(t, "os-1", task.Name)
	assert.Equal(t, 110.0, task.Workload)
	assert.Equal(t, 0.75, task.RequiredExperience)
	assert.Equal(t, monday, task.Date)
}

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	data := `max_workload: 480
technicians:
  - id: t1
    name: Ana
    experience: 1
    workload: 60
    history:
      - task: os-0
        date: 2024-10-19T08:00:00Z
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	roster, err := LoadRoster(path)
	require.NoError(t, err)
	assert.Equal(t, 480.0, roster.MaxWorkload)
	require.Len(t, roster.Technicians, 1)
	assert.True(t, onWeekend(roster.Technicians[0].History[0].Date))

	require.NoError(t, os.WriteFile(path, []byte("technicians: []\n"), 0o644))
	_, err = LoadRoster(path)
	assert.Error(t, err)
}
