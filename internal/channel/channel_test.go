package channel

import (
	"context"
	"testing"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/stretchr/testify/require"
)

func blockingHandler(release <-chan struct{}) Handler {
	return func(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error) {
		onChunk("partial")
		select {
		case <-release:
			return core.TranslationResult{Text: "done"}, nil
		case <-ctx.Done():
			return core.TranslationResult{}, ctx.Err()
		}
	}
}

func TestCancelViaChannel(t *testing.T) {
	c := New()
	sub := c.Attach("client1", 16)

	release := make(chan struct{})
	req := core.TranslationRequest{Model: "qwen-mt-turbo", Stream: true}
	c.Translate(context.Background(), "client1", "r1", req, blockingHandler(release))

	frame := <-sub.C
	require.Equal(t, FrameChunk, frame.Kind)

	c.Cancel("client1", "r1")
	// second cancel must be a no-op
	c.Cancel("client1", "r1")

	select {
	case f := <-sub.C:
		require.Equal(t, FrameError, f.Kind)
		require.Equal(t, string(core.ErrCancelled), f.Error.Message)
	case <-time.After(time.Second):
		t.Fatal("expected error frame after cancel")
	}
	require.Equal(t, 0, c.ActiveCount())
}

func TestClientDisconnectCancelsAllInFlight(t *testing.T) {
	c := New()
	c.Attach("client1", 16)
	release := make(chan struct{})

	for i := 0; i < 5; i++ {
		req := core.TranslationRequest{Model: "qwen-mt-turbo", Stream: true}
		c.Translate(context.Background(), "client1", string(rune('a'+i)), req, blockingHandler(release))
	}
	require.Eventually(t, func() bool { return c.ActiveCount() == 5 }, time.Second, time.Millisecond)

	c.Detach("client1")
	require.Eventually(t, func() bool { return c.ActiveCount() == 0 }, time.Second, time.Millisecond)
}
