package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeAck struct {
	acked    int
	nacked   int
	requeued bool
}

func (a *fakeAck) Ack(bool) error { a.acked++; return nil }
func (a *fakeAck) Nack(_ bool, requeue bool) error {
	a.nacked++
	a.requeued = requeue
	return nil
}

type fakeCounter struct{ counts map[string]int64 }

func (c *fakeCounter) IncrementAndGet(_ context.Context, key string) (int64, error) {
	c.counts[key]++
	return c.counts[key], nil
}

func (c *fakeCounter) Reset(_ context.Context, key string) error {
	delete(c.counts, key)
	return nil
}

type fakeDLQ struct{ messages [][]byte }

func (d *fakeDLQ) PublishToDLQ(_ context.Context, _ string, payload []byte, _, _ string) error {
	d.messages = append(d.messages, payload)
	return nil
}

type transientError struct{}

func (transientError) Error() string   { return "transient" }
func (transientError) Retryable() bool { return true }

func newTestConsumer(h MessageHandler) (*Consumer, *fakeCounter, *fakeDLQ) {
	counter := &fakeCounter{counts: make(map[string]int64)}
	dlq := &fakeDLQ{}
	c := &Consumer{routingKey: "application.accepted", queueName: "chat.provision.q", logger: zap.NewNop()}
	c.SetHandler(h)
	c.WithRetryPolicy(counter, dlq, 2)
	return c, counter, dlq
}

func TestProcessAcksOnSuccess(t *testing.T) {
	c, _, dlq := newTestConsumer(func(context.Context, json.RawMessage) error { return nil })
	ack := &fakeAck{}

	c.process(context.Background(), ack, []byte(`{}`))

	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)
	assert.Empty(t, dlq.messages)
}

func TestProcessRequeuesTransientUntilBudgetExhausted(t *testing.T) {
	c, _, dlq := newTestConsumer(func(context.Context, json.RawMessage) error { return transientError{} })
	body := []byte(`{"application_id":"a1"}`)

	for i := 0; i < 2; i++ {
		ack := &fakeAck{}
		c.process(context.Background(), ack, body)
		assert.Equal(t, 1, ack.nacked, "attempt %d", i+1)
		assert.True(t, ack.requeued)
	}

	ack := &fakeAck{}
	c.process(context.Background(), ack, body)
	assert.Equal(t, 1, ack.acked)
	assert.Len(t, dlq.messages, 1)
}

func TestProcessDeadLettersPermanentErrors(t *testing.T) {
	c, _, dlq := newTestConsumer(func(context.Context, json.RawMessage) error { return errors.New("bad payload") })
	ack := &fakeAck{}

	c.process(context.Background(), ack, []byte(`{}`))

	assert.Equal(t, 1, ack.acked)
	assert.Len(t, dlq.messages, 1)
}

func TestProcessRecoversPanics(t *testing.T) {
	c, _, dlq := newTestConsumer(func(context.Context, json.RawMessage) error { panic("boom") })
	ack := &fakeAck{}

	c.process(context.Background(), ack, []byte(`{}`))

	assert.Equal(t, 1, ack.acked+ack.nacked)
	assert.Len(t, dlq.messages, 1)
}

func TestProcessWithoutRetryPolicyRequeues(t *testing.T) {
	c := &Consumer{routingKey: "k", queueName: "q", logger: zap.NewNop()}
	c.SetHandler(func(context.Context, json.RawMessage) error { return errors.New("x") })
	ack := &fakeAck{}

	c.process(context.Background(), ack, []byte(`{}`))

	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeued)
}
