package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-core/config"
	"github.com/oksasatya/go-ddd-auth-core/pkg/mailer/templates"
)

type fakeSender struct {
	sent []Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func encode(t *testing.T, job EmailJob) []byte {
	t.Helper()
	b, err := json.Marshal(job)
	require.NoError(t, err)
	return b
}

func TestWorker_RendersTemplateWithBrand(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	w := NewWorker(s, quietLogger(), templates.WithBrand(&config.Config{AppName: "Auth Core", CompanyName: "Acme"}))

	job := EmailJob{To: "ann@x.com", Template: templates.Welcome, Data: templates.NewWelcomeData("Ann", "ann@x.com")}
	assert.Equal(t, Ack, w.Handle(context.Background(), encode(t, job), false))

	require.Len(t, s.sent, 1)
	assert.Equal(t, "ann@x.com", s.sent[0].To)
	assert.NotEmpty(t, s.sent[0].Subject)
	assert.Contains(t, s.sent[0].HTML, "Ann")
	assert.Contains(t, s.sent[0].Text, "Acme")
}

func TestWorker_RawBody(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	w := NewWorker(s, quietLogger())

	job := EmailJob{To: "ann@x.com", Subject: "hi", Text: "plain"}
	assert.Equal(t, Ack, w.Handle(context.Background(), encode(t, job), false))
	assert.Equal(t, Message{To: "ann@x.com", Subject: "hi", Text: "plain"}, s.sent[0])
}

func TestWorker_RejectsBadJobs(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	w := NewWorker(s, quietLogger())
	ctx := context.Background()

	assert.Equal(t, Reject, w.Handle(ctx, []byte("{nope"), false))
	assert.Equal(t, Reject, w.Handle(ctx, encode(t, EmailJob{To: "not-an-address", Text: "x"}), false))
	assert.Equal(t, Reject, w.Handle(ctx, encode(t, EmailJob{To: "ann@x.com", Template: "verify_email"}), false))
	assert.Equal(t, Reject, w.Handle(ctx, encode(t, EmailJob{To: "ann@x.com"}), false))
	assert.Empty(t, s.sent)
}

func TestWorker_RequeuesOnSendFailure(t *testing.T) {
	t.Parallel()
	w := NewWorker(&fakeSender{err: errors.New("mailgun 502")}, quietLogger())

	job := EmailJob{To: "ann@x.com", Subject: "hi", Text: "plain"}
	assert.Equal(t, Requeue, w.Handle(context.Background(), encode(t, job), false))
	// a permanent failure such as a revoked API key must not cycle forever
	assert.Equal(t, Reject, w.Handle(context.Background(), encode(t, job), true))
}

func TestCompose_RecipientDefaultsToTo(t *testing.T) {
	t.Parallel()
	job := EmailJob{To: " ann@x.com ", Template: templates.LoginNotification, Data: templates.NewLoginNotificationData("Ann", "")}
	msg, err := job.Compose()
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", msg.To)

	_, err = EmailJob{To: "", Text: "x"}.Compose()
	assert.ErrorIs(t, err, ErrNoRecipient)
	_, err = EmailJob{To: "a@x.com", Template: "nope"}.Compose()
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}
