package router

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"missionpipeline/domain"
	"missionpipeline/redisx"
	"missionpipeline/store"
)

// ConsumeLogin is the thin login instantiation of consumeIngress.
func (r *Router) ConsumeLogin(ctx context.Context, payload []byte) domain.Outcome {
	var evt domain.LoginEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		logrus.WithFields(logrus.Fields{"error": err}).Error("router: malformed login event")
		return domain.OutcomeFatal
	}

	var logins store.LoginStore
	return r.consumeIngress(ctx, ingressParams{
		eventID:     evt.EventID,
		userID:      evt.UserID,
		dedupPrefix: "login",
		missionType: domain.MissionLoginConsecutive,
		recordAction: func(ctx context.Context) error {
			_, err := logins.Record(ctx, r.Init.DB.DB, evt.UserID, evt.LoginDate)
			return err
		},
		predicate: r.Evaluator.EvaluateLoginStreak,
	})
}

// ConsumeLaunch is the thin game-launch instantiation of consumeIngress.
func (r *Router) ConsumeLaunch(ctx context.Context, payload []byte) domain.Outcome {
	var evt domain.GameLaunchEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		logrus.WithFields(logrus.Fields{"error": err}).Error("router: malformed game-launch event")
		return domain.OutcomeFatal
	}

	var launches store.LaunchStore
	return r.consumeIngress(ctx, ingressParams{
		eventID:     evt.EventID,
		userID:      evt.UserID,
		dedupPrefix: "game-launch",
		missionType: domain.MissionLaunchDistinct,
		recordAction: func(ctx context.Context) error {
			_, err := launches.Record(ctx, r.Init.DB.DB, evt.UserID, evt.GameID, evt.LaunchTime)
			return err
		},
		predicate: r.Evaluator.EvaluateDistinctLaunches,
	})
}

// ConsumePlay is the thin game-play instantiation of consumeIngress.
func (r *Router) ConsumePlay(ctx context.Context, payload []byte) domain.Outcome {
	var evt domain.GamePlayEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		logrus.WithFields(logrus.Fields{"error": err}).Error("router: malformed game-play event")
		return domain.OutcomeFatal
	}

	var plays store.PlayStore
	return r.consumeIngress(ctx, ingressParams{
		eventID:     evt.EventID,
		userID:      evt.UserID,
		dedupPrefix: "game-play",
		missionType: domain.MissionPlaySessionsScore,
		recordAction: func(ctx context.Context) error {
			_, err := plays.Record(ctx, r.Init.DB.DB, evt.EventID, evt.UserID, evt.GameID, evt.Score, evt.PlayTime)
			return err
		},
		predicate: r.Evaluator.EvaluatePlaySessions,
	})
}

// ConsumeMissionCompleted dedups and invokes the Reward Distributor,
// always resolving to an ack per spec §4.9: "errors are logged; a
// subsequent action will re-trigger evaluation and the idempotency guard
// prevents double-reward."
func (r *Router) ConsumeMissionCompleted(ctx context.Context, payload []byte) domain.Outcome {
	var evt domain.MissionCompletedEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		logrus.WithFields(logrus.Fields{"error": err}).Error("router: malformed mission-completed event")
		return domain.OutcomeOK
	}

	key := "processed:mission-completed:" + evt.EventID
	created, err := r.Dedup.MarkProcessed(ctx, key, redisx.ProcessedTTL)
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "event_id": evt.EventID}).Error(
			"router: mission-completed dedup check failed")
		return domain.OutcomeOK
	}
	if !created {
		return domain.OutcomeDuplicate
	}

	if _, err := r.Reward.Distribute(ctx, evt.UserID); err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "user_id": evt.UserID}).Error(
			"router: reward distribution failed, will re-evaluate on next completion")
	}
	return domain.OutcomeOK
}
