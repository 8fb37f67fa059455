package store

import "time"

// UserRow mirrors the `users` table.
type UserRow struct {
	UserID    string    `db:"user_id"`
	Points    int64     `db:"points"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// GameRow mirrors the `games` table.
type GameRow struct {
	GameID    string    `db:"game_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// LoginRow mirrors `user_login_records`.
type LoginRow struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	LoginDate time.Time `db:"login_date"`
	CreatedAt time.Time `db:"created_at"`
}

// LaunchRow mirrors `user_game_launches`.
type LaunchRow struct {
	ID         int64     `db:"id"`
	UserID     string    `db:"user_id"`
	GameID     string    `db:"game_id"`
	LaunchDate time.Time `db:"launch_date"`
	CreatedAt  time.Time `db:"created_at"`
}

// PlayRow mirrors `games_play_record`.
type PlayRow struct {
	ID        int64     `db:"id"`
	EventID   string    `db:"event_id"`
	UserID    string    `db:"user_id"`
	GameID    string    `db:"game_id"`
	Score     int       `db:"score"`
	PlayedAt  time.Time `db:"played_at"`
	CreatedAt time.Time `db:"created_at"`
}

// MissionRow mirrors `missions`.
type MissionRow struct {
	ID          int64      `db:"id"`
	UserID      string     `db:"user_id"`
	MissionType string     `db:"mission_type"`
	CycleStart  time.Time  `db:"cycle_start"`
	IsCompleted bool       `db:"is_completed"`
	CompletedAt *time.Time `db:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

// RewardRow mirrors `mission_rewards`.
type RewardRow struct {
	ID            int64     `db:"id"`
	UserID        string    `db:"user_id"`
	RewardType    string    `db:"reward_type"`
	Period        string    `db:"period"`
	Points        int       `db:"points"`
	DistributedAt time.Time `db:"distributed_at"`
}

// OutboxRow mirrors `message_outbox`.
type OutboxRow struct {
	ID          int64     `db:"id"`
	EventID     string    `db:"event_id"`
	Topic       string    `db:"topic"`
	EventType   string    `db:"event_type"`
	Codec       string    `db:"codec"`
	Payload     []byte    `db:"payload"`
	Status      string    `db:"status"`
	RetryCount  int       `db:"retry_count"`
	MaxRetries  int       `db:"max_retries"`
	NextRetryAt time.Time `db:"next_retry_at"`
	LastError   *string   `db:"last_error"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
