package router

import (
	"context"

	"github.com/sirupsen/logrus"

	"missionpipeline/bus"
	"missionpipeline/channel"
	"missionpipeline/domain"
)

// Consumer group names, one per ingress topic plus the mission-completed
// egress topic, per spec §6.
const (
	groupLogin            = "login-consumer"
	groupGameLaunch       = "game-launch-consumer"
	groupGamePlay         = "game-play-consumer"
	groupMissionCompleted = "mission-completed-consumer"
)

// Server owns one subscriber goroutine per consumer group, wired to
// bus.Bus.Subscribe, and fans their done-channels into a single shutdown
// signal via the channel package's Or helper.
type Server struct {
	Bus          bus.Bus
	Router       *Router
	ConsumerName string
}

// Run subscribes every consumer group and blocks until ctx is canceled or
// any one subscriber loop exits (whichever happens first).
func (s *Server) Run(ctx context.Context) error {
	subs := []struct {
		topic   string
		group   string
		handler bus.Handler
	}{
		{bus.TopicLogin, groupLogin, s.handle(s.Router.ConsumeLogin)},
		{bus.TopicGameLaunch, groupGameLaunch, s.handle(s.Router.ConsumeLaunch)},
		{bus.TopicGamePlay, groupGamePlay, s.handle(s.Router.ConsumePlay)},
		{bus.TopicMissionCompleted, groupMissionCompleted, s.handle(s.Router.ConsumeMissionCompleted)},
	}

	done := make([]<-chan struct{}, 0, len(subs))
	errs := make(chan error, len(subs))

	for _, sub := range subs {
		d := make(chan struct{})
		go func(topic, group string, handler bus.Handler) {
			defer close(d)
			if err := s.Bus.Subscribe(ctx, topic, group, s.ConsumerName, handler); err != nil {
				logrus.WithFields(logrus.Fields{"error": err, "topic": topic, "group": group}).Error(
					"router: subscriber loop exited")
				select {
				case errs <- err:
				default:
				}
			}
		}(sub.topic, sub.group, sub.handler)
		done = append(done, d)
	}

	<-channel.Or(done...)

	select {
	case err := <-errs:
		return err
	default:
		return ctx.Err()
	}
}

// handle adapts a domain.Outcome-returning consumer into a bus.Handler:
// only OutcomeRetry negative-acks, per domain.Outcome.ShouldAck.
func (s *Server) handle(consume func(ctx context.Context, payload []byte) domain.Outcome) bus.Handler {
	return func(ctx context.Context, payload []byte) error {
		outcome := consume(ctx, payload)
		if !outcome.ShouldAck() {
			return domain.ErrRetryable
		}
		return nil
	}
}
