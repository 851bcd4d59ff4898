package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/dbx"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

// SQLiteRepository stores validity_expire_at as unix seconds and
// is_premium as 0/1.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sqliteColumns = pgColumns

func scanSQLite(row rowScanner) (*models.Account, error) {
	var (
		a      models.Account
		expire sql.NullInt64
		speed  string
	)
	if err := row.Scan(&a.UserID, &a.Username, &a.Credits, &a.IsPremium, &expire, &a.SelectedVoice, &speed); err != nil {
		return nil, err
	}
	if expire.Valid {
		t := time.Unix(expire.Int64, 0).UTC()
		a.ValidityExpireAt = &t
	}
	a.SpeedPreference = models.Speed(speed).OrDefault()
	return &a, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID int64) (*models.Account, error) {
	a, err := scanSQLite(r.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM accounts WHERE user_id = ?`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, common.StorageError(err)
	}
	return a, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, userID int64, username string) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (user_id, username)
		 VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE
		 SET username = CASE WHEN excluded.username <> '' THEN excluded.username ELSE accounts.username END
		 RETURNING ` + sqliteColumns

	a, err := scanSQLite(r.db.QueryRowContext(ctx, query, userID, username))
	if err != nil {
		return nil, common.StorageError(err)
	}
	return a, nil
}

func (r *SQLiteRepository) list(ctx context.Context, where string, afterID int64, limit int) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM accounts WHERE user_id > ?`+where+` ORDER BY user_id LIMIT ?`,
		afterID, limit)
	if err != nil {
		return nil, common.StorageError(err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		a, err := scanSQLite(rows)
		if err != nil {
			return nil, common.StorageError(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError(err)
	}
	return out, nil
}

func (r *SQLiteRepository) List(ctx context.Context, afterID int64, limit int) ([]*models.Account, error) {
	return r.list(ctx, "", afterID, limit)
}

func (r *SQLiteRepository) ListPremium(ctx context.Context, afterID int64, limit int) ([]*models.Account, error) {
	return r.list(ctx, " AND is_premium = 1", afterID, limit)
}

func (r *SQLiteRepository) ListWithValidity(ctx context.Context, afterID int64, limit int) ([]*models.Account, error) {
	return r.list(ctx, " AND validity_expire_at IS NOT NULL", afterID, limit)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, common.StorageError(err)
	}
	return n, nil
}

func (r *SQLiteRepository) AddCredits(ctx context.Context, userID int64, delta int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET credits = credits + ? WHERE user_id = ? RETURNING credits`,
		delta, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, common.StorageError(err)
	}
	return balance, nil
}

func (r *SQLiteRepository) ConsumeCredits(ctx context.Context, userID int64, cost int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET credits = credits - ? WHERE user_id = ? AND credits >= ? RETURNING credits`,
		cost, userID, cost).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, common.StorageError(err)
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE user_id = ?`, userID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, common.ErrorNotFound
	case err != nil:
		return 0, common.StorageError(err)
	}
	return 0, common.ErrInsufficientCredits
}

func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return common.StorageError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.StorageError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) SetValidity(ctx context.Context, userID int64, expireAt time.Time) error {
	return r.exec(ctx,
		`UPDATE accounts SET validity_expire_at = ?, is_premium = 1 WHERE user_id = ?`,
		expireAt.Unix(), userID)
}

func (r *SQLiteRepository) ClearValidity(ctx context.Context, userID int64) error {
	return r.exec(ctx,
		`UPDATE accounts SET validity_expire_at = NULL, is_premium = 0 WHERE user_id = ?`,
		userID)
}

func (r *SQLiteRepository) ResetExpired(ctx context.Context, userID int64) error {
	return r.exec(ctx,
		`UPDATE accounts SET is_premium = 0, credits = 0, validity_expire_at = NULL WHERE user_id = ?`,
		userID)
}

func (r *SQLiteRepository) UpdatePreferences(ctx context.Context, userID int64, prefs models.Preferences) error {
	voice, speed := prefArgs(prefs)
	return r.exec(ctx,
		`UPDATE accounts
		 SET selected_voice = COALESCE(?, selected_voice),
		     speed_preference = COALESCE(?, speed_preference)
		 WHERE user_id = ?`,
		voice, speed, userID)
}
