package model

import "time"

// Reflection is a dated journal entry on a Goal. There is at most one per
// goal per ReflectionDate (YYYY-MM-DD).
type Reflection struct {
	ID             string    `json:"id"`
	GoalID         string    `json:"goalId"`
	ReflectionDate string    `json:"reflectionDate"`
	Content        string    `json:"content"`
	PromptText     string    `json:"promptText"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type ReflectionPatch struct {
	Content    *string `json:"content"    validate:"omitempty,min=1,max=5000"`
	PromptText *string `json:"promptText" validate:"omitempty,max=1000"`
}

func (p ReflectionPatch) Apply(r *Reflection) {
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.PromptText != nil {
		r.PromptText = *p.PromptText
	}
}
