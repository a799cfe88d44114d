package model

import "time"

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

type MetricType string

const (
	MetricBinary   MetricType = "binary"
	MetricCounter  MetricType = "counter"
	MetricDuration MetricType = "duration"
	MetricPages    MetricType = "pages"
)

type SystemStatus string

const (
	SystemActive   SystemStatus = "active"
	SystemInactive SystemStatus = "inactive"
	SystemPaused   SystemStatus = "paused"
)

// System is a recurring habit that works toward a Goal. It is owned through
// the goal. When VerificationRequired is set, new checkins wait for the
// owner's partner to verify them.
type System struct {
	ID                   string       `json:"id"`
	GoalID               string       `json:"goalId"`
	Title                string       `json:"title"`
	Description          string       `json:"description"`
	Frequency            Frequency    `json:"frequency"`
	MetricType           MetricType   `json:"metricType"`
	TargetValue          *float64     `json:"targetValue"`
	TargetUnit           string       `json:"targetUnit"`
	Status               SystemStatus `json:"status"`
	VerificationRequired bool         `json:"verificationRequired"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`
}

type SystemPatch struct {
	Title                *string       `json:"title"                validate:"omitempty,min=3,max=100"`
	Description          *string       `json:"description"          validate:"omitempty,max=2000"`
	Frequency            *Frequency    `json:"frequency"            validate:"omitempty,oneof=daily weekly"`
	MetricType           *MetricType   `json:"metricType"           validate:"omitempty,oneof=binary counter duration pages"`
	TargetValue          *float64      `json:"targetValue"          validate:"omitempty,gte=0"`
	TargetUnit           *string       `json:"targetUnit"           validate:"omitempty,max=50"`
	Status               *SystemStatus `json:"status"               validate:"omitempty,oneof=active inactive paused"`
	VerificationRequired *bool         `json:"verificationRequired"`
}

func (p SystemPatch) Apply(s *System) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Frequency != nil {
		s.Frequency = *p.Frequency
	}
	if p.MetricType != nil {
		s.MetricType = *p.MetricType
	}
	if p.TargetValue != nil {
		s.TargetValue = p.TargetValue
	}
	if p.TargetUnit != nil {
		s.TargetUnit = *p.TargetUnit
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.VerificationRequired != nil {
		s.VerificationRequired = *p.VerificationRequired
	}
}
