package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryConsumeWowOutboundReturnsFalseWhenEmpty(t *testing.T) {
	b := New()
	defer b.Close()

	_, ok := b.TryConsumeWowOutbound()
	assert.False(t, ok)
}

func TestTryConsumeWowOutboundDrainsQueuedMessages(t *testing.T) {
	b := New()
	defer b.Close()

	require.NoError(t, b.PublishWowOutbound(context.Background(), WowOutboundMessage{Text: "a"}))
	require.NoError(t, b.PublishWowOutbound(context.Background(), WowOutboundMessage{Text: "b"}))

	msg, ok := b.TryConsumeWowOutbound()
	require.True(t, ok)
	assert.Equal(t, "a", msg.Text)

	msg, ok = b.TryConsumeWowOutbound()
	require.True(t, ok)
	assert.Equal(t, "b", msg.Text)

	_, ok = b.TryConsumeWowOutbound()
	assert.False(t, ok)
}
