package domain

import "time"

// LoginEvent is the payload on TopicLogin (spec §6).
type LoginEvent struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	LoginDate time.Time `json:"login_date"`
}

// GameLaunchEvent is the payload on TopicGameLaunch (spec §6).
type GameLaunchEvent struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	GameID     string    `json:"game_id"`
	LaunchTime time.Time `json:"launch_time"`
}

// GamePlayEvent is the payload on TopicGamePlay (spec §6). Score is
// server-generated before publish; the HTTP layer echoes it back
// synchronously but persistence always flows through this event.
type GamePlayEvent struct {
	EventID  string    `json:"event_id"`
	UserID   string    `json:"user_id"`
	GameID   string    `json:"game_id"`
	Score    int       `json:"score"`
	PlayTime time.Time `json:"play_time"`
}

// MissionCompletedEvent is the payload on TopicMissionCompleted (spec §6),
// published by the Completion Engine's caller on a winning CAS transition.
type MissionCompletedEvent struct {
	EventID     string      `json:"event_id"`
	UserID      string      `json:"user_id"`
	MissionType MissionType `json:"mission_type"`
	CompletedAt time.Time   `json:"completed_at"`
}
