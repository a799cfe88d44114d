package model

import "time"

type ReactionTargetKind string

const (
	ReactionOnCheckin    ReactionTargetKind = "checkin"
	ReactionOnReflection ReactionTargetKind = "reflection"
	ReactionOnMessage    ReactionTargetKind = "message"
)

func (k ReactionTargetKind) Valid() bool {
	switch k {
	case ReactionOnCheckin, ReactionOnReflection, ReactionOnMessage:
		return true
	}
	return false
}

// Reaction is one emoji from one user on one target. The tuple
// (UserID, TargetKind, TargetID, Emoji) is unique.
type Reaction struct {
	ID         string             `json:"id"`
	UserID     string             `json:"userId"`
	Emoji      string             `json:"emoji"`
	TargetKind ReactionTargetKind `json:"targetKind"`
	TargetID   string             `json:"targetId"`
	CreatedAt  time.Time          `json:"createdAt"`
}
