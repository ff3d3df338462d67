package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_PublishThenConsumeIsFIFO(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, HitEvent{ShortCode: "a"}))
	require.NoError(t, q.Publish(ctx, HitEvent{ShortCode: "b"}))

	msgs, err := q.Consume(ctx, 10, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Event.ShortCode)
	assert.Equal(t, "b", msgs[1].Event.ShortCode)
}

func TestMemoryQueue_AckIsANoOp(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, HitEvent{ShortCode: "a"}))
	msgs, err := q.Consume(ctx, 10, time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, q.Ack(ctx, []string{msgs[0].ID}))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestMemoryQueue_ConsumeRespectsMax(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Publish(ctx, HitEvent{ShortCode: "a"}))
	}

	msgs, err := q.Consume(ctx, 2, time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, length)
}
