// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. Go favours composition over
// inheritance, so shared behaviour lives in small methods on these structs.
package model

import (
	"strings"
	"time"
)

// User represents a registered account.
//
// Identity is issued by an external provider: Subject is the JWT "sub"
// claim that provider puts in every token. We still generate our own
// internal ID so that foreign keys do not depend on the provider's format.
//
// CurrentPartnershipID is a weak pointer to the user's ACTIVE partnership.
// It is set on activation and cleared on dissolution, always inside the same
// transaction that changes the partnership.
type User struct {
	ID                   string    `json:"id"`
	Subject              string    `json:"-"`
	Email                string    `json:"email"`
	Username             string    `json:"username"`
	Name                 string    `json:"name"`
	Bio                  string    `json:"bio"`
	Timezone             string    `json:"timezone"`
	CurrentPartnershipID *string   `json:"currentPartnershipId"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// PublicUser is the subset of a user that other users may see.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Name: u.Name, Bio: u.Bio}
}

// IsPartnered reports whether the user currently has an ACTIVE partnership.
func (u *User) IsPartnered() bool {
	return u.CurrentPartnershipID != nil && *u.CurrentPartnershipID != ""
}

// UserPatch is a partial profile update. A nil field leaves the stored value
// unchanged; a non-nil field overwrites it.
type UserPatch struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50,alphanum"`
	Name     *string `json:"name"     validate:"omitempty,max=100"`
	Bio      *string `json:"bio"      validate:"omitempty,max=500"`
	Timezone *string `json:"timezone" validate:"omitempty,timezone"`
}

func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Timezone != nil {
		u.Timezone = *p.Timezone
	}
}

// NormalizeEmail trims surrounding whitespace and lower-cases an address.
// Every email comparison in the application goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
