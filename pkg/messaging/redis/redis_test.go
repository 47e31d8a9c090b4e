package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consult-api/pkg/messaging"
)

func TestEncode(t *testing.T) {
	raw := json.RawMessage(`{"type":"consultation_scheduled"}`)

	out, err := encode(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), out)

	out, err = encode([]byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", string(out))

	out, err = encode(map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"b"}`, string(out))

	_, err = encode(make(chan int))
	assert.Error(t, err)
}

func TestPublishOpensBreakerAfterConsecutiveFailures(t *testing.T) {
	// nothing listens on port 1
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer client.Close()

	logger := zerolog.Nop()
	b := newBroker(client, &logger)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := b.Publish(ctx, messaging.ChannelNotifications, []byte(`{}`))
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState), "attempt %d", i+1)
	}
	assert.Equal(t, gobreaker.StateOpen, b.cb.State())

	err := b.Publish(ctx, messaging.ChannelNotifications, []byte(`{}`))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestPublishEncodeFailureSkipsBreaker(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	logger := zerolog.Nop()
	b := newBroker(client, &logger)

	for i := 0; i < 6; i++ {
		require.Error(t, b.Publish(context.Background(), messaging.ChannelNotifications, make(chan int)))
	}
	assert.Equal(t, gobreaker.StateClosed, b.cb.State())
}
