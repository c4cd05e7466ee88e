// Package mail envía los correos salientes por SMTP con gomail.
package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jhoicas/medstock-api/internal/application/ports"
)

// sender lo implementa *gomail.Dialer.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

var _ ports.Mailer = (*Sender)(nil)

// Sender implementa ports.Mailer.
type Sender struct {
	dialer sender
	from   string
}

// NewSender construye el remitente SMTP.
func NewSender(host string, port int, user, password, from string) *Sender {
	return &Sender{dialer: gomail.NewDialer(host, port, user, password), from: from}
}

// SendInvitation envía el enlace de aceptación. El contexto solo se respeta antes de conectar:
// gomail no admite cancelación durante el envío.
func (s *Sender) SendInvitation(ctx context.Context, inv ports.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := BuildInvitation(s.from, inv)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("enviar invitación a %s: %w", inv.To, err)
	}
	return nil
}

// BuildInvitation arma el mensaje de invitación (texto plano y HTML).
func BuildInvitation(from string, inv ports.Invitation) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetAddressHeader("To", inv.To, inv.Name)
	m.SetHeader("Subject", "Invitation à MedStock")
	m.SetBody("text/plain", fmt.Sprintf(
		"Bonjour %s,\n\nVous avez été invité(e) sur MedStock avec le rôle %s.\n"+
			"Pour activer votre compte, choisissez un mot de passe ici :\n%s\n",
		inv.Name, inv.Role, inv.AcceptURL))
	m.AddAlternative("text/html", fmt.Sprintf(
		`<p>Bonjour %s,</p><p>Vous avez été invité(e) sur MedStock avec le rôle <b>%s</b>.</p>`+
			`<p><a href="%s">Activer mon compte</a></p>`,
		inv.Name, inv.Role, inv.AcceptURL))
	return m
}
