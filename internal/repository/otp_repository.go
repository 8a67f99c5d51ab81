package repository

import (
	"context"
	"database/sql"
	"time"
)

// OTPRepo stores one-time codes emailed during registration.  Like
// refresh tokens, only the SHA-256 hash of a code is persisted.  A
// code is consumed exactly once; expired or consumed codes fail
// validation the same way as unknown ones so callers cannot probe.
type OTPRepo struct{ DB *sql.DB }

func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{DB: db} }

// Create invalidates any outstanding codes for the same user and
// purpose, then inserts a fresh one.
func (r *OTPRepo) Create(ctx context.Context, userID uint64, codeHash, purpose string, exp time.Time) error {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE otp_codes SET consumed_at=NOW() WHERE user_id=? AND purpose=? AND consumed_at IS NULL",
		userID, purpose); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO otp_codes (user_id, code_hash, purpose, expires_at) VALUES (?,?,?,?)",
		userID, codeHash, purpose, exp)
	return err
}

// Consume validates and burns a code in one conditional UPDATE.  It
// returns sql.ErrNoRows when the code is unknown, expired or already
// consumed.
func (r *OTPRepo) Consume(ctx context.Context, userID uint64, codeHash, purpose string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE otp_codes SET consumed_at=NOW()
		 WHERE user_id=? AND code_hash=? AND purpose=? AND consumed_at IS NULL AND expires_at > UTC_TIMESTAMP()`,
		userID, codeHash, purpose)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
