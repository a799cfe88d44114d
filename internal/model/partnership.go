package model

import "time"

// PartnershipStatus is the lifecycle state of a Partnership.
//
//	pending_invite ──accept──▶ active ──terminate──▶ dissolved
//	      │                                              ▲
//	      ├──decline / cancel────────────────────────────┘
//	      └──expiry──▶ expired_invite
type PartnershipStatus string

const (
	PartnershipPendingInvite PartnershipStatus = "pending_invite"
	PartnershipActive        PartnershipStatus = "active"
	PartnershipDissolved     PartnershipStatus = "dissolved"
	PartnershipExpiredInvite PartnershipStatus = "expired_invite"
)

var partnershipTransitions = map[PartnershipStatus][]PartnershipStatus{
	PartnershipPendingInvite: {PartnershipActive, PartnershipDissolved, PartnershipExpiredInvite},
	PartnershipActive:        {PartnershipDissolved},
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// step. DISSOLVED and EXPIRED_INVITE are terminal.
func (s PartnershipStatus) CanTransitionTo(next PartnershipStatus) bool {
	for _, allowed := range partnershipTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PartnershipStatus) IsTerminal() bool {
	return len(partnershipTransitions[s]) == 0
}

// Partnership links two users for mutual accountability.
//
// User1ID is always the user who sent the invite. User2ID stays nil until
// the invite is accepted. InviteToken is unique and only present while the
// partnership is PENDING_INVITE.
type Partnership struct {
	ID                   string            `json:"id"`
	User1ID              string            `json:"user1Id"`
	User2ID              *string           `json:"user2Id"`
	Status               PartnershipStatus `json:"status"`
	InviteToken          *string           `json:"-"`
	InviteTokenExpiresAt *time.Time        `json:"inviteTokenExpiresAt"`
	InviteEmail          *string           `json:"inviteEmail"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
	ActivatedAt          *time.Time        `json:"activatedAt"`
	DissolvedAt          *time.Time        `json:"dissolvedAt"`
}

// Members returns the ids of the users in the partnership. A pending
// partnership has only the requester.
func (p *Partnership) Members() []string {
	if p.User2ID == nil {
		return []string{p.User1ID}
	}
	return []string{p.User1ID, *p.User2ID}
}

func (p *Partnership) HasMember(userID string) bool {
	return userID != "" && (p.User1ID == userID || (p.User2ID != nil && *p.User2ID == userID))
}

// OtherMember returns the member that is not userID, or "" if there is none.
func (p *Partnership) OtherMember(userID string) string {
	switch {
	case p.User1ID == userID && p.User2ID != nil:
		return *p.User2ID
	case p.User2ID != nil && *p.User2ID == userID:
		return p.User1ID
	default:
		return ""
	}
}

// IsInvitee reports whether email is the address the invite was sent to.
func (p *Partnership) IsInvitee(email string) bool {
	return p.InviteEmail != nil && *p.InviteEmail == NormalizeEmail(email)
}

// InviteDecision is the invitee's answer to a pending invite.
type InviteDecision string

const (
	DecisionAccept  InviteDecision = "accept"
	DecisionDecline InviteDecision = "decline"
)

func (d InviteDecision) Valid() bool {
	return d == DecisionAccept || d == DecisionDecline
}
