package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh tokens (single 'token_hash' key column).
// Presence of a row is the revocation signal: a deleted row means the
// token can never be exchanged again, regardless of its own expiry.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token hash row.
func (r *TokenRepo) Store(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (token_hash, user_id, expires_at) VALUES (?,?,?)",
		tokenHash, userID, exp)
	return err
}

// Exists reports whether a row for the given hash is present.
func (r *TokenRepo) Exists(ctx context.Context, tokenHash string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a token row. Returns ErrNotFound when no row matched so
// callers can decide whether "already gone" matters; for logout it does not.
func (r *TokenRepo) Delete(ctx context.Context, tokenHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Rotate atomically replaces one refresh token row with another: the old
// hash is deleted and the new one inserted inside a single transaction, so
// a refresh call never leaves both (or neither) credential live.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash, userID, newHash string, exp time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=?", oldHash); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (token_hash, user_id, expires_at) VALUES (?,?,?)",
		newHash, userID, exp); err != nil {
		return err
	}
	return tx.Commit()
}
