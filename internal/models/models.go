package models

import (
	"time"
)

// Run is a one-time capability token binding a caller to a server-issued
// start time. A run transitions unused -> used exactly once and is retained
// forever for audit and replay rejection.
type Run struct {
	ID         string     `gorm:"primarykey" json:"id"`
	Owner      string     `gorm:"not null;index" json:"owner"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	Used       bool       `gorm:"not null;default:false" json:"used"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	FinalScore *int       `json:"final_score,omitempty"`
}

// TableName specifies the table name for GORM
func (Run) TableName() string {
	return "runs"
}

// LeaderboardEntry is a caller's personal best, keyed by owner identity.
// BestScore only ever increases; OrderingKey is derived from
// (BestScore, UpdatedAtMillis) and recomputed only when BestScore rises.
type LeaderboardEntry struct {
	Owner           string    `gorm:"primarykey" json:"owner"`
	DisplayName     string    `gorm:"not null" json:"display_name"`
	BestScore       int       `gorm:"not null" json:"best_score"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
	UpdatedAtMillis int64     `gorm:"not null" json:"updated_at_millis"`
	OrderingKey     int64     `gorm:"not null;index" json:"ordering_key"`
}

// TableName specifies the table name for GORM
func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}

// StartRunResponse acknowledges a new run with the server clock that anchors
// its duration checks.
type StartRunResponse struct {
	RunID      string `json:"run_id"`
	ServerTime int64  `json:"server_time"`
}

// SubmitScoreRequest is the payload for a scored submission.
type SubmitScoreRequest struct {
	RunID       string `json:"run_id" validate:"required"`
	Score       int    `json:"score" validate:"gte=0"`
	DisplayName string `json:"display_name" validate:"required"`
}

// RankResponse reports a caller's point-in-time standing.
type RankResponse struct {
	Rank        int64  `json:"rank"`
	Score       int    `json:"score"`
	DisplayName string `json:"display_name"`
}

// PublicEntry is a leaderboard row as shown to other players.
type PublicEntry struct {
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
}

// LeaderboardPageResponse is one forward-paginated page of the board.
// NextCursor is absent on the last known page.
type LeaderboardPageResponse struct {
	Entries    []PublicEntry `json:"entries"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
