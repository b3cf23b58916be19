package models

import "time"

// LearningPlan is a generated curriculum: ordered modules of day-scheduled
// tasks. Modules and tasks are stored as a JSONB document with the plan row.
type LearningPlan struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Title       string       `json:"title"`
	Topic       string       `json:"topic"`
	SkillLevel  SkillLevel   `json:"skill_level"`
	Status      PlanStatus   `json:"status"`
	TotalDays   int          `json:"total_days"`
	Modules     []PlanModule `json:"modules"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// PlanModule groups related tasks under one topic.
type PlanModule struct {
	Name  string     `json:"name"`
	Topic string     `json:"topic"`
	Tasks []PlanTask `json:"tasks"`
}

// PlanTask is a single scheduled unit of work.
type PlanTask struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Kind             string `json:"kind,omitempty"` // exercise, reading, project, review
	DayOffset        int    `json:"day_offset"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	Difficulty       string `json:"difficulty,omitempty"`
	Completed        bool   `json:"completed"`
}

// TaskCount returns (total, completed) across all modules.
func (p *LearningPlan) TaskCount() (int, int) {
	var total, completed int
	for _, m := range p.Modules {
		for _, t := range m.Tasks {
			total++
			if t.Completed {
				completed++
			}
		}
	}
	return total, completed
}

// TasksForDay returns the tasks scheduled at the given day offset.
func (p *LearningPlan) TasksForDay(dayOffset int) []PlanTask {
	var out []PlanTask
	for _, m := range p.Modules {
		for _, t := range m.Tasks {
			if t.DayOffset == dayOffset {
				out = append(out, t)
			}
		}
	}
	return out
}

// FindTask returns pointers to the task with the given id and its module, or
// (nil, nil) when absent. The pointers alias the plan's own storage so
// callers can mutate in place before saving.
func (p *LearningPlan) FindTask(taskID string) (*PlanTask, *PlanModule) {
	for i := range p.Modules {
		for j := range p.Modules[i].Tasks {
			if p.Modules[i].Tasks[j].ID == taskID {
				return &p.Modules[i].Tasks[j], &p.Modules[i]
			}
		}
	}
	return nil, nil
}

// MarkTaskCompleted marks the task with the given id completed. Reports
// whether this call changed anything: unknown ids and already-completed
// tasks return false.
func (p *LearningPlan) MarkTaskCompleted(taskID string) bool {
	t, _ := p.FindTask(taskID)
	if t == nil || t.Completed {
		return false
	}
	t.Completed = true
	return true
}

// FirstIncompleteTask returns the incomplete task with the lowest day offset
// (module order breaks ties), or nil when everything is done.
func (p *LearningPlan) FirstIncompleteTask() *PlanTask {
	var best *PlanTask
	for i := range p.Modules {
		for j := range p.Modules[i].Tasks {
			t := &p.Modules[i].Tasks[j]
			if t.Completed {
				continue
			}
			if best == nil || t.DayOffset < best.DayOffset {
				best = t
			}
		}
	}
	return best
}
