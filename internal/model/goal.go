package model

import "time"

type GoalPriority string

const (
	PriorityHigh   GoalPriority = "high"
	PriorityMedium GoalPriority = "medium"
	PriorityLow    GoalPriority = "low"
)

type GoalStatus string

const (
	GoalNotStarted GoalStatus = "not_started"
	GoalInProgress GoalStatus = "in_progress"
	GoalAchieved   GoalStatus = "achieved"
	GoalOnHold     GoalStatus = "on_hold"
	GoalAbandoned  GoalStatus = "abandoned"
)

// Goal is the root of an ownership subtree: systems, their checkins and the
// goal's reflections all belong to Goal.UserID.
//
// StartDate and TargetDate are calendar dates in YYYY-MM-DD form.
type Goal struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Priority    GoalPriority `json:"priority"`
	Status      GoalStatus   `json:"status"`
	StartDate   *string      `json:"startDate"`
	TargetDate  *string      `json:"targetDate"`
	IsArchived  bool         `json:"isArchived"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type GoalPatch struct {
	Title       *string       `json:"title"       validate:"omitempty,min=3,max=100"`
	Description *string       `json:"description" validate:"omitempty,max=2000"`
	Category    *string       `json:"category"    validate:"omitempty,max=50"`
	Priority    *GoalPriority `json:"priority"    validate:"omitempty,oneof=high medium low"`
	Status      *GoalStatus   `json:"status"      validate:"omitempty,oneof=not_started in_progress achieved on_hold abandoned"`
	StartDate   *string       `json:"startDate"   validate:"omitempty,datetime=2006-01-02"`
	TargetDate  *string       `json:"targetDate"  validate:"omitempty,datetime=2006-01-02"`
	IsArchived  *bool         `json:"isArchived"`
}

func (p GoalPatch) Apply(g *Goal) {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	if p.Priority != nil {
		g.Priority = *p.Priority
	}
	if p.Status != nil {
		g.Status = *p.Status
	}
	if p.StartDate != nil {
		g.StartDate = p.StartDate
	}
	if p.TargetDate != nil {
		g.TargetDate = p.TargetDate
	}
	if p.IsArchived != nil {
		g.IsArchived = *p.IsArchived
	}
}
