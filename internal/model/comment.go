package model

import "time"

// Comment is attached to exactly one of a Goal or a Checkin. A reply points
// at its parent through ParentCommentID and shares the parent's target.
type Comment struct {
	ID              string    `json:"id"`
	AuthorID        string    `json:"authorId"`
	GoalID          *string   `json:"goalId"`
	CheckinID       *string   `json:"checkinId"`
	ParentCommentID *string   `json:"parentCommentId"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// SameTarget reports whether c and other are attached to the same goal or
// checkin.
func (c *Comment) SameTarget(other *Comment) bool {
	return equalPtr(c.GoalID, other.GoalID) && equalPtr(c.CheckinID, other.CheckinID)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
