package email

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/consult-api/internal/config"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSendBuildsMessage(t *testing.T) {
	d := &recordingDialer{}
	svc := &smtpService{dialer: d, from: "clinic@example.test"}

	require.NoError(t, svc.Send(context.Background(), "pat@example.test", "Scheduled", "See you"))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"pat@example.test"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"clinic@example.test"}, d.sent[0].GetHeader("From"))

	var buf bytes.Buffer
	_, err := d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "See you")
}

func TestSendWrapsDialError(t *testing.T) {
	svc := &smtpService{dialer: &recordingDialer{err: stderrors.New("refused")}, from: "a@b.test"}
	err := svc.Send(context.Background(), "x@y.test", "s", "b")
	assert.ErrorContains(t, err, "refused")
}

func TestDisabledServiceIsNoop(t *testing.T) {
	svc := NewService(config.EmailConfig{Enabled: false})
	assert.NoError(t, svc.Send(context.Background(), "x@y.test", "s", "b"))
}
