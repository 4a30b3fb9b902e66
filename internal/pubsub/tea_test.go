package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenCmd_ReturnsNextEventAsMsg(t *testing.T) {
	b := NewBroker[arrival]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)
	b.Publish(UpdatedEvent, arrival{module: "crateB", records: 3})

	msg := ListenCmd(ctx, ch)()

	ev, ok := msg.(Event[arrival])
	require.True(t, ok, "got %T", msg)
	require.Equal(t, arrival{module: "crateB", records: 3}, ev.Payload)
	require.Equal(t, UpdatedEvent, ev.Type)
}

func TestListenCmd_NilWhenStopped(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() context.Context
		ch   func() <-chan Event[arrival]
	}{
		{
			name: "cancelled context",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			ch: func() <-chan Event[arrival] { return make(chan Event[arrival]) },
		},
		{
			name: "closed channel",
			ctx:  context.Background,
			ch: func() <-chan Event[arrival] {
				ch := make(chan Event[arrival])
				close(ch)
				return ch
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Nil(t, ListenCmd(tt.ctx(), tt.ch())())
		})
	}
}

func TestContinuousListener_KeepsOneSubscription(t *testing.T) {
	b := NewBroker[arrival]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewContinuousListener(ctx, b)

	for _, m := range []string{"crateA", "crateB", "crateC"} {
		b.Publish(CreatedEvent, arrival{module: m})
	}
	require.Equal(t, 1, b.SubscriberCount())

	for _, want := range []string{"crateA", "crateB", "crateC"} {
		ev, ok := l.Listen()().(Event[arrival])
		require.True(t, ok)
		require.Equal(t, want, ev.Payload.module)
	}
	require.Equal(t, 1, b.SubscriberCount(), "Listen must not resubscribe")
}
