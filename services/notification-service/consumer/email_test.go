package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobpulse/jobpulse-api/services/notification-service/config"
	"github.com/jobpulse/jobpulse-api/shared/event"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeMailSender struct {
	mu     sync.Mutex
	sent   []sentMail
	notify chan struct{}
}

func (f *fakeMailSender) SendSimple(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	if f.notify != nil {
		close(f.notify)
		f.notify = nil
	}

	return nil
}

func (f *fakeMailSender) mails() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

func newTestConsumer(sender MailSender) *EmailConsumer {
	logger := zerolog.Nop()
	cfg := &config.NotificationServiceConfig{
		ConfirmRegistrationURL: "http://localhost:3000/auth/confirm",
		ConfirmEmailChangeURL:  "http://localhost:8080/api/auth/confirm-email-change",
		PasswordResetURL:       "http://localhost:3000/auth/reset-password",
	}

	return NewEmailConsumer(sender, cfg, &logger)
}

func envelope(t *testing.T, topic string, payload any) event.Envelope {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	return event.Envelope{
		ID:         "evt-1",
		Topic:      topic,
		OccurredAt: time.Now(),
		Payload:    data,
	}
}

func TestHandleRegistration_SendsConfirmationLink(t *testing.T) {
	t.Parallel()

	sender := &fakeMailSender{}
	c := newTestConsumer(sender)

	evt := envelope(t, event.TopicUserRegistration, event.RegistrationEvent{
		Login: "a@x.com",
		Token: "tok123",
	})
	require.NoError(t, c.handleRegistration(context.Background(), evt))

	mails := sender.mails()
	require.Len(t, mails, 1)
	assert.Equal(t, "a@x.com", mails[0].to)
	assert.Equal(t, "Email confirmation", mails[0].subject)
	assert.Contains(t, mails[0].body, "http://localhost:3000/auth/confirm?token=tok123")
}

func TestHandleForgotPassword_SendsResetLink(t *testing.T) {
	t.Parallel()

	sender := &fakeMailSender{}
	c := newTestConsumer(sender)

	evt := envelope(t, event.TopicUserForgot, event.RegistrationEvent{
		Login: "a@x.com",
		Token: "tok456",
	})
	require.NoError(t, c.handleForgotPassword(context.Background(), evt))

	mails := sender.mails()
	require.Len(t, mails, 1)
	assert.Contains(t, mails[0].body, "http://localhost:3000/auth/reset-password?token=tok456")
}

func TestHandleVacancyResponse_MailsEmployer(t *testing.T) {
	t.Parallel()

	sender := &fakeMailSender{}
	c := newTestConsumer(sender)

	evt := envelope(t, event.TopicResponseNotifications, event.ResponseEvent{
		Username: "candidate@x.com",
		Response: "Go Developer",
		Email:    "employer@x.com",
	})
	require.NoError(t, c.handleVacancyResponse(context.Background(), evt))

	mails := sender.mails()
	require.Len(t, mails, 1)
	assert.Equal(t, "employer@x.com", mails[0].to)
	assert.Contains(t, mails[0].subject, "Go Developer")
	assert.Contains(t, mails[0].body, "candidate@x.com")
}

func TestHandle_MalformedPayloadIsNotRetried(t *testing.T) {
	t.Parallel()

	sender := &fakeMailSender{}
	c := newTestConsumer(sender)

	evt := event.Envelope{ID: "evt-bad", Topic: event.TopicUserRegistration, Payload: []byte("{not json")}

	// A poison message must be dropped, not redelivered forever.
	require.NoError(t, c.handleRegistration(context.Background(), evt))
	assert.Empty(t, sender.mails())
}

func TestStart_ConsumesFromBroker(t *testing.T) {
	t.Parallel()

	logger := zerolog.Nop()
	broker := event.NewBroker(&logger)

	delivered := make(chan struct{})
	sender := &fakeMailSender{notify: delivered}

	c := newTestConsumer(sender)
	c.Start(broker)

	require.NoError(t, broker.Publish(context.Background(), event.TopicUserRegistration, event.RegistrationEvent{
		Login: "a@x.com",
		Token: "tok",
	}))

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not consumed")
	}

	broker.Close()

	mails := sender.mails()
	require.Len(t, mails, 1)
	assert.Equal(t, "a@x.com", mails[0].to)
}
