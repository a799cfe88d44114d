// Package mailer delivers transactional email.
//
// Delivery is fire-and-forget from the caller's point of view: services log
// a failed send as a warning and carry on, so a mail outage never blocks a
// partnership invite from being created.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"
)

// Invite is everything needed to tell someone they have been invited to a
// partnership.
type Invite struct {
	To            string
	RequesterName string
	AcceptURL     string
	ExpiresAt     time.Time
}

// Mailer sends application email. Implementations return a delivery id
// that is useful for correlating logs with the provider.
type Mailer interface {
	SendPartnershipInvite(ctx context.Context, inv Invite) (string, error)
}

const productName = "DuoTrak"

var inviteTemplate = template.Must(template.New("invite").Parse(`<p>Hi,</p>
<p><b>{{.RequesterName}}</b> has invited you to become their accountability partner on {{.Product}}.</p>
<p>Click the link below to accept the invitation:</p>
<p><a href="{{.AcceptURL}}">Accept Invitation</a></p>
<p>This invitation expires on {{.Expires}}.</p>
<p>If you did not expect this, you can safely ignore this email.</p>
`))

// renderInvite returns the subject and HTML body of an invite email.
func renderInvite(inv Invite) (string, string, error) {
	var buf bytes.Buffer
	err := inviteTemplate.Execute(&buf, struct {
		Invite
		Product string
		Expires string
	}{inv, productName, inv.ExpiresAt.UTC().Format("January 2, 2006")})
	if err != nil {
		return "", "", fmt.Errorf("mailer: rendering invite: %w", err)
	}
	return fmt.Sprintf("You're invited to be a partner on %s!", productName), buf.String(), nil
}
