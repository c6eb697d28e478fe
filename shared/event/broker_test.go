package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker() *Broker {
	logger := zerolog.Nop()
	return NewBroker(&logger)
}

func TestBroker_PublishAndSubscribe(t *testing.T) {
	t.Parallel()

	b := newTestBroker()

	received := make(chan Envelope, 1)
	b.Subscribe(TopicUserRegistration, "registration-group", func(_ context.Context, evt Envelope) error {
		received <- evt
		return nil
	})

	err := b.Publish(context.Background(), TopicUserRegistration, RegistrationEvent{
		Login: "a@x.com",
		Token: "tok",
	})
	require.NoError(t, err)

	select {
	case evt := <-received:
		assert.Equal(t, TopicUserRegistration, evt.Topic)
		assert.NotEmpty(t, evt.ID)

		var payload RegistrationEvent
		require.NoError(t, json.Unmarshal(evt.Payload, &payload))
		assert.Equal(t, "a@x.com", payload.Login)
		assert.Equal(t, "tok", payload.Token)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	b.Close()
}

func TestBroker_RedeliversOnHandlerError(t *testing.T) {
	t.Parallel()

	b := newTestBroker()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	b.Subscribe(TopicUserForgot, "user-forgot-event", func(_ context.Context, _ Envelope) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("smtp unavailable")
		}
		close(done)
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), TopicUserForgot, RegistrationEvent{Login: "a@x.com"}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not redelivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)

	b.Close()
}

func TestBroker_PublishWithoutSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	b := newTestBroker()
	defer b.Close()

	// Overfill the topic buffer; every call must return immediately.
	for i := 0; i < topicBufferSize+10; i++ {
		require.NoError(t, b.Publish(context.Background(), TopicResponseNotifications, ResponseEvent{
			Username: "candidate@x.com",
			Response: "Go Developer",
			Email:    "employer@x.com",
		}))
	}
}

func TestBroker_PublishAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	b := newTestBroker()

	var mu sync.Mutex
	delivered := 0

	b.Subscribe(TopicUserRegistration, "registration-group", func(_ context.Context, _ Envelope) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	b.Close()

	// The subscriber loops have exited; a late publish must drop the event
	// instead of stranding it in the topic buffer.
	require.NoError(t, b.Publish(context.Background(), TopicUserRegistration, RegistrationEvent{Login: "a@x.com"}))

	ch := b.topic(TopicUserRegistration)
	assert.Empty(t, ch)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, delivered)
}

func TestBroker_CloseDrainsQueue(t *testing.T) {
	t.Parallel()

	b := newTestBroker()

	var mu sync.Mutex
	delivered := 0

	b.Subscribe(TopicUserChange, "email-change-group", func(_ context.Context, _ Envelope) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Publish(context.Background(), TopicUserChange, RegistrationEvent{Login: "a@x.com"}))
	}

	b.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, delivered)
}
