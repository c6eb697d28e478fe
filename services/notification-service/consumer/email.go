package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jobpulse/jobpulse-api/services/notification-service/config"
	"github.com/jobpulse/jobpulse-api/shared/event"
)

// MailSender is the slice of the mailer this consumer needs.
type MailSender interface {
	SendSimple(to, subject, body string) error
}

// registrationEvent and responseEvent are decoded locally so the worker
// does not depend on the publisher's types; the JSON field names are the
// wire contract.
type registrationEvent struct {
	Login string `json:"login"`
	Token string `json:"token"`
}

type responseEvent struct {
	Username string `json:"username"`
	Response string `json:"response"`
	Email    string `json:"email"`
}

// EmailConsumer subscribes to account lifecycle topics and sends the
// corresponding notification emails. Delivery is at-least-once: a user may
// occasionally receive the same mail twice, which is harmless for every
// kind handled here.
type EmailConsumer struct {
	mailer MailSender
	cfg    *config.NotificationServiceConfig
	logger *zerolog.Logger
}

// NewEmailConsumer creates an EmailConsumer.
func NewEmailConsumer(
	mailer MailSender,
	cfg *config.NotificationServiceConfig,
	logger *zerolog.Logger,
) *EmailConsumer {
	return &EmailConsumer{
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
	}
}

// Subscriber registers event handlers by topic.
type Subscriber interface {
	Subscribe(topic, group string, handler event.Handler)
}

// Start subscribes the consumer's handlers to their topics.
func (c *EmailConsumer) Start(broker Subscriber) {
	broker.Subscribe(event.TopicUserRegistration, "registration-group", c.handleRegistration)
	broker.Subscribe(event.TopicUserChange, "email-change-group", c.handleEmailChange)
	broker.Subscribe(event.TopicUserForgot, "user-forgot-event", c.handleForgotPassword)
	broker.Subscribe(event.TopicResponseNotifications, "response-notifications", c.handleVacancyResponse)
}

func (c *EmailConsumer) handleRegistration(_ context.Context, evt event.Envelope) error {
	var payload registrationEvent
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		c.logger.Error().Err(err).Str("event_id", evt.ID).Msg("failed to decode registration event")
		return nil
	}

	confirmationURL := fmt.Sprintf("%s?token=%s", c.cfg.ConfirmRegistrationURL, payload.Token)
	body := fmt.Sprintf(`Hello!

To confirm your email address, follow the link:
%s

The link is valid for 24 hours.

If you did not register on our service, please ignore this email.
`, confirmationURL)

	return c.mailer.SendSimple(payload.Login, "Email confirmation", body)
}

func (c *EmailConsumer) handleEmailChange(_ context.Context, evt event.Envelope) error {
	var payload registrationEvent
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		c.logger.Error().Err(err).Str("event_id", evt.ID).Msg("failed to decode email change event")
		return nil
	}

	confirmationURL := fmt.Sprintf("%s?token=%s", c.cfg.ConfirmEmailChangeURL, payload.Token)
	body := fmt.Sprintf("Follow the link to confirm your email change: %s", confirmationURL)

	return c.mailer.SendSimple(payload.Login, "Email change confirmation", body)
}

func (c *EmailConsumer) handleForgotPassword(_ context.Context, evt event.Envelope) error {
	var payload registrationEvent
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		c.logger.Error().Err(err).Str("event_id", evt.ID).Msg("failed to decode password reset event")
		return nil
	}

	resetURL := fmt.Sprintf("%s?token=%s", c.cfg.PasswordResetURL, payload.Token)
	body := fmt.Sprintf(`Hello!

To reset your password, follow the link:
%s

The link is valid for 24 hours.

If you did not request a password reset, please ignore this email.
`, resetURL)

	return c.mailer.SendSimple(payload.Login, "Password recovery", body)
}

func (c *EmailConsumer) handleVacancyResponse(_ context.Context, evt event.Envelope) error {
	var payload responseEvent
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		c.logger.Error().Err(err).Str("event_id", evt.ID).Msg("failed to decode vacancy response event")
		return nil
	}

	subject := fmt.Sprintf("New response to vacancy %s", payload.Response)
	body := fmt.Sprintf(`Dear employer,

A new candidate has responded to your vacancy "%s".

Contact details:
Email: %s

This is an automated notification, please do not reply to this email.
`, payload.Response, payload.Username)

	return c.mailer.SendSimple(payload.Email, subject, body)
}
