package ports

import "context"

// Invitation datos del correo de invitación.
type Invitation struct {
	To        string
	Name      string
	Role      string
	AcceptURL string
}

// Mailer puerto de salida para correo saliente (best-effort).
type Mailer interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}
