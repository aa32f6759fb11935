package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ n int }
type pong struct{ s string }

func TestPublishDispatchesByType(t *testing.T) {
	b := New()
	var pings []int
	var pongs []string
	Subscribe(b, func(_ context.Context, e ping) { pings = append(pings, e.n) })
	Subscribe(b, func(_ context.Context, e pong) { pongs = append(pongs, e.s) })

	Publish(context.Background(), b, ping{n: 1})
	Publish(context.Background(), b, pong{s: "a"})
	Publish(context.Background(), b, ping{n: 2})

	require.Equal(t, []int{1, 2}, pings)
	require.Equal(t, []string{"a"}, pongs)
}

func TestUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	b := New()
	var first, second int
	unsub := Subscribe(b, func(context.Context, ping) { first++ })
	Subscribe(b, func(context.Context, ping) { second++ })

	Publish(context.Background(), b, ping{})
	unsub()
	unsub()
	Publish(context.Background(), b, ping{})

	require.Equal(t, 1, first)
	require.Equal(t, 2, second)
}

func TestNilBusIsNoop(t *testing.T) {
	var b *Bus
	unsub := Subscribe(b, func(context.Context, ping) { t.Fatal("handler must not run") })
	Publish(context.Background(), b, ping{})
	unsub()
}
