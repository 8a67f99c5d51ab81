package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/recycleshare/recycleshare/internal/model"
)

// ScoreRepo serves the read side of environmental scores.  Accrual is
// an engine side effect; this repository only answers reporting
// queries with parameterized SQL.
type ScoreRepo struct {
	db *sql.DB
}

// NewScoreRepo returns a new ScoreRepo bound to the given database.
func NewScoreRepo(db *sql.DB) *ScoreRepo { return &ScoreRepo{db: db} }

// Get returns the score row for one (user, month, year).  A user with
// no collections in the period gets a zero-score row back rather than
// an error.
func (r *ScoreRepo) Get(ctx context.Context, userID uint64, month, year int) (model.EnvScore, error) {
	const q = `SELECT user_id, month, year, score, updated_at FROM env_scores
	           WHERE user_id=? AND month=? AND year=? LIMIT 1`
	var s model.EnvScore
	err := r.db.QueryRowContext(ctx, q, userID, month, year).Scan(&s.UserID, &s.Month, &s.Year, &s.Score, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.EnvScore{UserID: userID, Month: month, Year: year, Score: 0, UpdatedAt: time.Now().UTC()}, nil
	}
	return s, err
}

// History returns every accrual period for a user, newest first.
func (r *ScoreRepo) History(ctx context.Context, userID uint64) ([]model.EnvScore, error) {
	const q = `SELECT user_id, month, year, score, updated_at FROM env_scores
	           WHERE user_id=? ORDER BY year DESC, month DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	scores := make([]model.EnvScore, 0)
	for rows.Next() {
		var s model.EnvScore
		if err := rows.Scan(&s.UserID, &s.Month, &s.Year, &s.Score, &s.UpdatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// MonthlySummary is one row of the admin monthly report.
type MonthlySummary struct {
	Month       int   `json:"month"`
	Year        int   `json:"year"`
	TotalScore  int64 `json:"total_score"`
	Recyclers   int64 `json:"recyclers"`
	Collections int64 `json:"collections"`
}

// MonthlySummaries aggregates scores and completed collections per
// calendar month, newest first.
func (r *ScoreRepo) MonthlySummaries(ctx context.Context) ([]MonthlySummary, error) {
	const q = `SELECT s.month, s.year, SUM(s.score), COUNT(DISTINCT s.user_id),
	           (SELECT COUNT(*) FROM reservations res
	            WHERE res.status='COLLECTED'
	              AND MONTH(res.updated_at)=s.month AND YEAR(res.updated_at)=s.year)
	           FROM env_scores s
	           GROUP BY s.year, s.month
	           ORDER BY s.year DESC, s.month DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MonthlySummary, 0)
	for rows.Next() {
		var m MonthlySummary
		if err := rows.Scan(&m.Month, &m.Year, &m.TotalScore, &m.Recyclers, &m.Collections); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TopRecycler is one row of the admin leaderboard report.
type TopRecycler struct {
	UserID uint64 `json:"user_id"`
	Email  string `json:"email"`
	Score  int64  `json:"score"`
}

// TopRecyclers returns the highest-scoring users for one period.
func (r *ScoreRepo) TopRecyclers(ctx context.Context, month, year, limit int) ([]TopRecycler, error) {
	const q = `SELECT s.user_id, u.email, s.score
	           FROM env_scores s
	           JOIN users u ON u.id = s.user_id
	           WHERE s.month=? AND s.year=?
	           ORDER BY s.score DESC, s.user_id
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, month, year, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]TopRecycler, 0)
	for rows.Next() {
		var t TopRecycler
		if err := rows.Scan(&t.UserID, &t.Email, &t.Score); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
