// Package api is the synchronous surface the (out-of-scope) HTTP layer
// calls into, per spec §6: fire-and-forget ingress publishes plus the
// read-only getters and existence checks the request handlers need before
// they publish. Everything past this package's boundary — auth, DTO
// shaping, routing — is the HTTP layer's job, not this repository's.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"missionpipeline/bus"
	"missionpipeline/domain"
	"missionpipeline/outbox"
	"missionpipeline/rand"
	"missionpipeline/store"
)

// API bundles every dependency the HTTP layer's request handlers reach
// through: the Bus Adapter for publishing ingress events and the Event
// Store for the synchronous read paths spec §6 lists (get-missions,
// get-rewards, user/game existence checks).
type API struct {
	Bus    bus.Bus
	Outbox *outbox.Store

	Users    store.UserStore
	Games    store.GameStore
	Missions store.MissionStore
	Rewards  store.RewardStore
	DB       *store.DB

	Now func() time.Time
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// publishAsync marshals evt, publishes it on topic, and routes a failed
// send to the Outbox — the fire-and-forget contract spec §4.4 describes
// for every ingress topic. The caller never blocks on bus availability.
func (a *API) publishAsync(ctx context.Context, topic, eventType, eventID string, evt any) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "api: marshal event")
	}

	a.Bus.PublishAsync(ctx, topic, payload, func(sendErr error) {
		if sendErr == nil {
			return
		}
		if enqErr := a.Outbox.Enqueue(context.Background(), eventID, topic, eventType, payload, a.now()); enqErr != nil {
			// Both the publish and the compensating enqueue failed: the
			// event is lost unless the next user action re-triggers the
			// same mission evaluation, which spec §7 accepts as the
			// async pipeline's closing-the-gap behavior.
			_ = enqErr
		}
	})
	return nil
}

// PublishLogin publishes a login event for userID on date (spec §6,
// TopicLogin). Fire-and-forget from the caller's perspective.
func (a *API) PublishLogin(ctx context.Context, userID string, date time.Time) error {
	evt := domain.LoginEvent{EventID: uuid.NewString(), UserID: userID, LoginDate: date}
	return a.publishAsync(ctx, bus.TopicLogin, "LoginEvent", evt.EventID, evt)
}

// PublishLaunch publishes a game-launch event for (userID, gameID) at the
// current time (spec §6, TopicGameLaunch).
func (a *API) PublishLaunch(ctx context.Context, userID, gameID string) error {
	evt := domain.GameLaunchEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		GameID:     gameID,
		LaunchTime: a.now(),
	}
	return a.publishAsync(ctx, bus.TopicGameLaunch, "GameLaunchEvent", evt.EventID, evt)
}

// PublishPlay generates the play session's score server-side per spec §6
// ("Score is server-generated"), publishes a game-play event, and returns
// the generated score so the HTTP layer can echo it back to the caller
// synchronously — persistence itself flows only through the published
// event, never through this call's return value.
func (a *API) PublishPlay(ctx context.Context, userID, gameID string) (score int, err error) {
	score = rand.PlayScore()
	evt := domain.GamePlayEvent{
		EventID:  uuid.NewString(),
		UserID:   userID,
		GameID:   gameID,
		Score:    score,
		PlayTime: a.now(),
	}
	if err := a.publishAsync(ctx, bus.TopicGamePlay, "GamePlayEvent", evt.EventID, evt); err != nil {
		return 0, err
	}
	return score, nil
}

// GetMissions returns userID's mission rows in the active 30-day cycle
// (spec §6's synchronous get-missions read path).
func (a *API) GetMissions(ctx context.Context, userID string) ([]store.MissionRow, error) {
	since := a.now().Add(-domain.CycleWindow)
	rows, err := a.Missions.ActiveCycleMissions(ctx, a.DB, userID, since)
	if err != nil {
		return nil, errors.Wrap(err, "api: get missions")
	}
	return rows, nil
}

// GetRewards returns every reward row ever distributed to userID (spec §6's
// synchronous get-rewards read path).
func (a *API) GetRewards(ctx context.Context, userID string) ([]store.RewardRow, error) {
	var rows []store.RewardRow
	q := a.DB.Rebind(`SELECT id, user_id, reward_type, period, points, distributed_at
		FROM mission_rewards WHERE user_id = ? ORDER BY distributed_at DESC`)
	if err := a.DB.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "api: get rewards")
	}
	return rows, nil
}

// UserExists reports whether userID is a known user, for the HTTP layer's
// authentication/not-found checks (spec §1 treats auth itself as external).
func (a *API) UserExists(ctx context.Context, userID string) (bool, error) {
	_, err := a.Users.Get(ctx, a.DB.DB, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrap(err, "api: user exists")
	}
	return true, nil
}

// GameExists reports whether gameID is in the static game catalog (spec §1
// treats catalog lookup itself as external; this is the existence check the
// HTTP layer is contractually expected to call before publishing a
// launch/play event).
func (a *API) GameExists(ctx context.Context, gameID string) (bool, error) {
	return a.Games.Exists(ctx, a.DB.DB, gameID)
}
