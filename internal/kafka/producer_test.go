package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w}

	expires := time.Date(2025, 5, 8, 10, 0, 0, 0, time.UTC)
	event := BoostEvent{
		Type:        EventBoostActivated,
		ListingID:   "l-1",
		BoostType:   "vedette",
		Provider:    "stripe",
		ProviderRef: "cs_1",
		ExpiresAt:   &expires,
		OccurredAt:  expires.Add(-7 * 24 * time.Hour),
	}

	require.NoError(t, p.Publish(context.Background(), "boost-events", "l-1", event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "boost-events", msg.Topic)
	assert.Equal(t, []byte("l-1"), msg.Key)

	var got BoostEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, EventBoostActivated, got.Type)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))
}

func TestPublishWriteError(t *testing.T) {
	p := &Producer{writer: &recordingWriter{err: errors.New("broker down")}}

	err := p.Publish(context.Background(), "boost-events", "k", BoostEvent{Type: EventReconciliationRequired})
	assert.ErrorContains(t, err, "broker down")
}

func TestPublishMarshalError(t *testing.T) {
	p := &Producer{writer: &recordingWriter{}}

	err := p.Publish(context.Background(), "boost-events", "k", make(chan int))
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, (&Producer{writer: w}).Close())
	assert.True(t, w.closed)
}
