package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_PublishesEnvelopeKeyedByPickup(t *testing.T) {
	w := &memWriter{}
	p := newProducer(w, "test-svc", 8)
	p.Start()

	p.Publish(context.Background(), EventPickupStatusChanged, "pickup-1", PickupStatusChangedPayload{
		PickupID: "pickup-1", From: "Pending", To: "Dijemput",
	})
	p.Close()

	require.True(t, w.closed)
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "pickup-1", string(msg.Key))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, EventPickupStatusChanged, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "test-svc", env.Producer)
	assert.NotEmpty(t, env.EventID)

	payload, err := Decode[PickupStatusChangedPayload](env)
	require.NoError(t, err)
	assert.Equal(t, "Dijemput", payload.To)
}

func TestProducer_DropsWhenBufferFull(t *testing.T) {
	w := &memWriter{}
	p := newProducer(w, "test-svc", 1)

	p.Publish(context.Background(), EventTrackAppended, "a", TrackAppendedPayload{})
	p.Publish(context.Background(), EventTrackAppended, "b", TrackAppendedPayload{})

	p.Start()
	p.Close()
	assert.Len(t, w.msgs, 1)
}

func TestProducer_PublishAfterCloseIsDropped(t *testing.T) {
	w := &memWriter{}
	p := newProducer(w, "test-svc", 4)
	p.Start()
	p.Close()

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), EventPointsSettled, "late", PointsSettledPayload{})
	})
	p.Close()
	assert.Empty(t, w.msgs)
}

func TestProducer_CloseWithoutStartReturns(t *testing.T) {
	w := &memWriter{}
	p := newProducer(w, "test-svc", 4)

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked without Start")
	}
	assert.True(t, w.closed)

	p.Start()
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), EventTrackAppended, "late", TrackAppendedPayload{})
	})
}
