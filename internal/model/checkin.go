package model

import "time"

type CheckinStatus string

const (
	CheckinCompleted           CheckinStatus = "completed"
	CheckinSkipped             CheckinStatus = "skipped"
	CheckinPendingVerification CheckinStatus = "pending_verification"
	CheckinVerifiedCompleted   CheckinStatus = "verified_completed"
	CheckinQueriedByPartner    CheckinStatus = "queried_by_partner"
)

// Verifiable reports whether a partner may still approve or query a checkin
// in this status.
func (s CheckinStatus) Verifiable() bool {
	return s == CheckinPendingVerification || s == CheckinCompleted
}

// Checkin records one execution of a System. UserID is the author, which is
// always the owner of the system. VerifiedByID is the partner who verified
// or queried it.
type Checkin struct {
	ID            string        `json:"id"`
	SystemID      string        `json:"systemId"`
	UserID        string        `json:"userId"`
	Status        CheckinStatus `json:"status"`
	MetricValue   *float64      `json:"metricValue"`
	Notes         string        `json:"notes"`
	CheckinAt     time.Time     `json:"checkinAt"`
	VerifiedByID  *string       `json:"verifiedById"`
	VerifiedAt    *time.Time    `json:"verifiedAt"`
	VerifierQuery *string       `json:"verifierQuery"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type CheckinPatch struct {
	MetricValue *float64 `json:"metricValue" validate:"omitempty,gte=0"`
	Notes       *string  `json:"notes"       validate:"omitempty,max=2000"`
}

func (p CheckinPatch) Apply(c *Checkin) {
	if p.MetricValue != nil {
		c.MetricValue = p.MetricValue
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
}

// VerifyAction is the partner's verdict on a checkin.
type VerifyAction string

const (
	VerifyApprove VerifyAction = "approve"
	VerifyQuery   VerifyAction = "query"
)
