package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	mu       sync.Mutex
	groupErr error
	batches  [][]redis.XMessage
	acked    []string
}

func (f *fakeStream) XGroupCreateMkStream(context.Context, string, string, string) *redis.StatusCmd {
	return redis.NewStatusResult("OK", f.groupErr)
}

func (f *fakeStream) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	f.mu.Lock()
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0], Messages: batch}}, nil)
	}
	f.mu.Unlock()

	<-ctx.Done()
	return redis.NewXStreamSliceCmdResult(nil, ctx.Err())
}

func (f *fakeStream) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func (f *fakeStream) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

func profileMessage(t *testing.T, id string, p ProfileScrapedPayload) redis.XMessage {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{"id": id, "type": string(EventTypeProfileScraped), "payload": p})
	require.NoError(t, err)
	return redis.XMessage{ID: id, Values: map[string]interface{}{
		"type": string(EventTypeProfileScraped),
		"data": string(data),
	}}
}

func TestDecodeMessage(t *testing.T) {
	email := "ana@example.com"
	msg := profileMessage(t, "1-0", ProfileScrapedPayload{ProfileURL: "https://example.com/c/1", Name: "Ana", Email: &email})

	got, err := DecodeMessage(msg)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ana", got.Name)
	assert.True(t, got.HasContact())

	tests := []struct {
		name    string
		values  map[string]interface{}
		wantNil bool
		wantErr bool
	}{
		{"other event type", map[string]interface{}{"type": "SOMETHING_ELSE", "data": "{}"}, true, false},
		{"missing data", map[string]interface{}{"type": string(EventTypeProfileScraped)}, true, true},
		{"bad envelope", map[string]interface{}{"type": string(EventTypeProfileScraped), "data": "{"}, true, true},
		{"empty payload", map[string]interface{}{"type": string(EventTypeProfileScraped), "data": `{"id":"x"}`}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeMessage(redis.XMessage{ID: "2-0", Values: tt.values})
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.wantNil, got == nil)
		})
	}
}

func TestConsumer_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &fakeStream{
		groupErr: errors.New("BUSYGROUP Consumer Group name already exists"),
		batches: [][]redis.XMessage{{
			profileMessage(t, "1-0", ProfileScrapedPayload{ProfileURL: "https://example.com/c/1"}),
			{ID: "2-0", Values: map[string]interface{}{"type": "OTHER"}},
			profileMessage(t, "3-0", ProfileScrapedPayload{ProfileURL: "https://example.com/c/fail"}),
			{ID: "4-0", Values: map[string]interface{}{"type": string(EventTypeProfileScraped), "data": "{"}},
		}},
	}

	var mu sync.Mutex
	var handled []string
	handler := func(_ context.Context, p *ProfileScrapedPayload) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, p.ProfileURL)
		if p.ProfileURL == "https://example.com/c/fail" {
			return errors.New("downstream unavailable")
		}
		return nil
	}

	c := NewConsumer(stream, ConsumerConfig{Stream: "stream:candidate_profiles", Block: 10 * time.Millisecond}, handler, nil)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(stream.ackedIDs()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// the failed message stays pending for redelivery
	assert.Equal(t, []string{"1-0", "2-0", "4-0"}, stream.ackedIDs())
	mu.Lock()
	assert.Equal(t, []string{"https://example.com/c/1", "https://example.com/c/fail"}, handled)
	mu.Unlock()
}

func TestConsumer_RunErrors(t *testing.T) {
	c := NewConsumer(&fakeStream{}, ConsumerConfig{}, nil, nil)
	assert.Error(t, c.Run(context.Background()))

	c = NewConsumer(&fakeStream{groupErr: errors.New("NOPERM")}, ConsumerConfig{Stream: "s"}, nil, nil)
	assert.Error(t, c.Run(context.Background()))
}
