package model

import "time"

// EnvScore accumulates reward points for one user in one calendar
// month.  Exactly one row exists per (user, month, year); concurrent
// collection completions add to the same row, they never overwrite
// it.  Each completed collection contributes an integer number of
// points computed from the collected amount and the waste type's
// per-unit score, so later edits to a listing never change history.
type EnvScore struct {
	UserID    uint64    // env_scores.user_id
	Month     int       // env_scores.month (1-12)
	Year      int       // env_scores.year
	Score     int64     // env_scores.score
	UpdatedAt time.Time // env_scores.updated_at
}
