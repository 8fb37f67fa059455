// Package router is the Event Router (C9): the three ingress consumers
// (login / launch / play) and the mission-completed egress consumer, all
// built as thin instantiations of one higher-order state machine per
// spec.md Design Notes §9 and spec §4.9.
package router

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"missionpipeline/bus"
	"missionpipeline/domain"
	"missionpipeline/mission"
	"missionpipeline/outbox"
	"missionpipeline/redisx"
	"missionpipeline/retry"
	"missionpipeline/reward"
)

// Router holds every dependency the ingress and completion consumers share.
type Router struct {
	Dedup      *redisx.Client
	Init       *mission.Initializer
	Evaluator  *mission.Evaluator
	Completion *mission.CompletionEngine
	Reward     *reward.Distributor
	Bus        bus.Bus
	Outbox     *outbox.Store

	// PublishRetry bounds the single extra synchronous attempt spec.md §9
	// grants a mission-completed publish before it falls back to the
	// Outbox (spec §4.7).
	PublishRetry retry.Policy

	Now func() time.Time
}

func (r *Router) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// ingressParams is what every one of the three ingress consumers reduces
// to once its own payload has been parsed.
type ingressParams struct {
	eventID      string
	userID       string
	dedupPrefix  string
	missionType  domain.MissionType
	recordAction func(ctx context.Context) error
	predicate    func(ctx context.Context, userID string) bool
}

// consumeIngress implements spec §4.9's ingress state machine verbatim.
func (r *Router) consumeIngress(ctx context.Context, p ingressParams) domain.Outcome {
	key := "processed:" + p.dedupPrefix + ":" + p.eventID

	created, err := r.Dedup.MarkProcessed(ctx, key, redisx.ProcessedTTL)
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "event_id": p.eventID}).Error(
			"router: dedup check failed")
		return domain.OutcomeRetry
	}
	if !created {
		return domain.OutcomeDuplicate
	}

	if err := r.Init.EnsureMissions(ctx, p.userID); err != nil {
		r.release(ctx, key)
		logrus.WithFields(logrus.Fields{"error": err, "user_id": p.userID}).Warn(
			"router: ensure missions failed, releasing dedup key for redelivery")
		return domain.OutcomeRetry
	}

	if err := p.recordAction(ctx); err != nil {
		r.release(ctx, key)
		logrus.WithFields(logrus.Fields{"error": err, "event_id": p.eventID}).Warn(
			"router: record action failed, releasing dedup key for redelivery")
		return domain.OutcomeRetry
	}

	won, err := r.Completion.CheckAndComplete(ctx, p.userID, p.missionType, p.predicate)
	if err != nil {
		r.release(ctx, key)
		logrus.WithFields(logrus.Fields{"error": err, "user_id": p.userID}).Warn(
			"router: check-and-complete failed, releasing dedup key for redelivery")
		return domain.OutcomeRetry
	}

	if won {
		r.publishCompletion(ctx, p.userID, p.missionType)
	}
	return domain.OutcomeOK
}

func (r *Router) release(ctx context.Context, key string) {
	if err := r.Dedup.ReleaseProcessed(ctx, key); err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "key": key}).Error(
			"router: failed to release dedup key after downstream failure")
	}
}

// publishCompletion publishes MissionCompleted synchronously, spec §4.7.
// On failure it gets one immediate extra attempt via PublishRetry before
// falling back to the Outbox, so a single transient blip doesn't pay the
// sweeper's 30s latency.
func (r *Router) publishCompletion(ctx context.Context, userID string, mt domain.MissionType) {
	now := r.now()
	evt := domain.MissionCompletedEvent{
		EventID:     outbox.NewEventID(),
		UserID:      userID,
		MissionType: mt,
		CompletedAt: now,
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "user_id": userID}).Error(
			"router: marshal mission-completed event failed")
		return
	}

	_, err = retry.Do(ctx, r.PublishRetry, func() (struct{}, error) {
		return struct{}{}, r.Bus.PublishSync(ctx, bus.TopicMissionCompleted, payload)
	})
	if err == nil {
		return
	}

	if enqErr := r.Outbox.Enqueue(ctx, evt.EventID, bus.TopicMissionCompleted, "MissionCompleted", payload, now); enqErr != nil {
		logrus.WithFields(logrus.Fields{"error": enqErr, "user_id": userID}).Error(
			"router: outbox enqueue failed after publish retry exhausted")
	}
}
