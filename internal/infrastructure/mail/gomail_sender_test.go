package mail

import (
	"context"
	"errors"
	"mime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/medstock-api/internal/application/ports"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSendInvitation_CabecerasDelMensaje(t *testing.T) {
	d := &fakeDialer{}
	s := &Sender{dialer: d, from: "noreply@medstock.local"}

	err := s.SendInvitation(context.Background(), ports.Invitation{
		To: "lea@medstock.local", Name: "Léa", Role: "Utilisateur", AcceptURL: "https://x/accept?token=abc",
	})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	m := d.sent[0]
	assert.Equal(t, []string{"noreply@medstock.local"}, m.GetHeader("From"))
	assert.Contains(t, m.GetHeader("To")[0], "lea@medstock.local")
	// gomail guarda las cabeceras no ASCII codificadas en RFC 2047.
	require.Len(t, m.GetHeader("Subject"), 1)
	subject, err := new(mime.WordDecoder).DecodeHeader(m.GetHeader("Subject")[0])
	require.NoError(t, err)
	assert.Equal(t, "Invitation à MedStock", subject)
}

func TestSendInvitation_ErroresSMTPYContextoCancelado(t *testing.T) {
	d := &fakeDialer{err: errors.New("535 auth failed")}
	s := &Sender{dialer: d, from: "noreply@medstock.local"}
	err := s.SendInvitation(context.Background(), ports.Invitation{To: "a@b.fr"})
	assert.ErrorContains(t, err, "535 auth failed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.SendInvitation(ctx, ports.Invitation{To: "a@b.fr"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, d.sent, 1)
}
