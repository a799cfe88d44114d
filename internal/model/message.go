package model

import "time"

// DirectMessage is a message between the two members of a partnership. Both
// members may read it; only the sender may delete it and only the recipient
// may mark it read.
type DirectMessage struct {
	ID            string     `json:"id"`
	PartnershipID string     `json:"partnershipId"`
	SenderID      string     `json:"senderId"`
	Text          string     `json:"text"`
	Emoji         string     `json:"emoji"`
	SentAt        time.Time  `json:"sentAt"`
	ReadAt        *time.Time `json:"readAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
