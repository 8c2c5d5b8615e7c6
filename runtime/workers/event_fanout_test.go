package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_Fanout(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockSink1 := mocks.NewMockEventSink(ctrl)
	mockSink2 := mocks.NewMockEventSink(ctrl)

	fanout := NewEventFanout(log, []contract.EventSink{mockSink1, mockSink2}, nil, time.Second)
	evt := event.MessagePosted{Message: domain.Message{ID: 1}}

	// Given both sinks consume the event once, in registration order
	gomock.InOrder(
		mockSink1.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1),
		mockSink2.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1),
	)

	// When the event is handled by the worker
	fanout.Fanout(context.Background(), evt)
}

func TestEventFanout_Failing_Sink_Does_Not_Stop_Others(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	failing := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)

	fanout := NewEventFanout(log, []contract.EventSink{failing, healthy}, nil, time.Second)

	failing.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(fmt.Errorf("boom")).Times(1)
	healthy.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	fanout.Fanout(context.Background(), event.MessagePosted{})
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	slow := mocks.NewMockEventSink(ctrl)
	next := mocks.NewMockEventSink(ctrl)

	sinkTimeout := 20 * time.Millisecond
	fanout := NewEventFanout(log, []contract.EventSink{slow, next}, nil, sinkTimeout)

	// Given a sink waiting for its deadline
	slow.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		}).
		Times(1)
	next.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	// When the event is fanned out
	start := time.Now()
	fanout.Fanout(context.Background(), event.MessagePosted{})

	// Then the slow sink only cost its timeout
	req.Less(time.Since(start), time.Second)
}

func TestEventFanout_Run_Drains_Until_Canceled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockSink := mocks.NewMockEventSink(ctrl)

	events := make(chan event.DomainEvent, 2)
	fanout := NewEventFanout(log, []contract.EventSink{mockSink}, events, time.Second)

	consumed := make(chan struct{}, 2)
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			consumed <- struct{}{}
			return nil
		}).
		Times(2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fanout.Run(ctx) }()

	events <- event.MessagePosted{Message: domain.Message{ID: 1}}
	events <- event.MessagePosted{Message: domain.Message{ID: 2}}
	for i := 0; i < 2; i++ {
		select {
		case <-consumed:
		case <-time.After(time.Second):
			req.Fail("event not consumed")
		}
	}

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("fanout did not stop")
	}
}
