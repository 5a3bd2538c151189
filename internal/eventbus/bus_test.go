package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/testutil"
)

type DispatcherSuite struct {
	suite.Suite
	bus *Dispatcher
	ctx context.Context
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.bus = New(testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *DispatcherSuite) TestPublishFansOut() {
	first := &Recorder{}
	second := &Recorder{}
	s.bus.Subscribe(first)
	s.bus.Subscribe(second)

	s.bus.Publish(s.ctx,
		model.Event{Type: model.EventPlayerJoined, RoomID: "r1"},
		model.Event{Type: model.EventPlayerLeft, RoomID: "r1"},
	)

	s.Len(first.Events(), 2)
	s.Len(second.Events(), 2)
	s.Equal(model.EventPlayerJoined, first.Events()[0].Type)
	s.Equal(model.EventPlayerLeft, first.Events()[1].Type)
}

func (s *DispatcherSuite) TestUnsubscribe() {
	rec := &Recorder{}
	unsubscribe := s.bus.Subscribe(rec)

	s.bus.Publish(s.ctx, model.Event{Type: model.EventRoomCreated})
	unsubscribe()
	s.bus.Publish(s.ctx, model.Event{Type: model.EventRoomClosed})

	s.Len(rec.Events(), 1)
	s.Len(rec.OfType(model.EventRoomCreated), 1)
	s.Empty(rec.OfType(model.EventRoomClosed))
}

func (s *DispatcherSuite) TestPanickingSubscriberDoesNotStopDelivery() {
	rec := &Recorder{}
	s.bus.Subscribe(SubscriberFunc(func(ctx context.Context, event model.Event) {
		panic("boom")
	}))
	s.bus.Subscribe(rec)

	s.NotPanics(func() {
		s.bus.Publish(s.ctx, model.Event{Type: model.EventRoomCreated})
	})
	s.Len(rec.Events(), 1)
}

func (s *DispatcherSuite) TestPublishWithoutSubscribers() {
	s.NotPanics(func() {
		s.bus.Publish(s.ctx, model.Event{Type: model.EventRoomCreated})
	})
}
