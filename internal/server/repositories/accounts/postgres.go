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

const pgColumns = `user_id, username, credits, is_premium, validity_expire_at, selected_voice, speed_preference`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgres(row rowScanner) (*models.Account, error) {
	var (
		a      models.Account
		expire sql.NullTime
		speed  string
	)
	if err := row.Scan(&a.UserID, &a.Username, &a.Credits, &a.IsPremium, &expire, &a.SelectedVoice, &speed); err != nil {
		return nil, err
	}
	if expire.Valid {
		t := expire.Time.UTC()
		a.ValidityExpireAt = &t
	}
	a.SpeedPreference = models.Speed(speed).OrDefault()
	return &a, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID int64) (*models.Account, error) {
	query := `SELECT ` + pgColumns + ` FROM accounts WHERE user_id = $1`

	a, err := scanPostgres(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, common.StorageError(err)
	}
	return a, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID int64, username string) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (user_id, username)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE accounts.username END
		 RETURNING ` + pgColumns

	a, err := scanPostgres(r.db.QueryRowContext(ctx, query, userID, username))
	if err != nil {
		return nil, common.StorageError(err)
	}
	return a, nil
}

func (r *PostgresRepository) list(ctx context.Context, where string, afterID int64, limit int) ([]*models.Account, error) {
	query := `SELECT ` + pgColumns + ` FROM accounts WHERE user_id > $1` + where + ` ORDER BY user_id LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, common.StorageError(err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		a, err := scanPostgres(rows)
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

func (r *PostgresRepository) List(ctx context.Context, afterID int64, limit int) ([]*models.Account, error) {
	return r.list(ctx, "", afterID, limit)
}

func (r *PostgresRepository) ListPremium(ctx context.Context, afterID int64, limit int) ([]*models.Account, error) {
	return r.list(ctx, " AND is_premium", afterID, limit)
}

func (r *PostgresRepository) ListWithValidity(ctx context.Context, afterID int64, limit int) ([]*models.Account, error) {
	return r.list(ctx, " AND validity_expire_at IS NOT NULL", afterID, limit)
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, common.StorageError(err)
	}
	return n, nil
}

func (r *PostgresRepository) AddCredits(ctx context.Context, userID int64, delta int64) (int64, error) {
	query :=
		`UPDATE accounts SET credits = credits + $2
		 WHERE user_id = $1
		 RETURNING credits`

	var balance int64
	if err := r.db.QueryRowContext(ctx, query, userID, delta).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, common.StorageError(err)
	}
	return balance, nil
}

func (r *PostgresRepository) ConsumeCredits(ctx context.Context, userID int64, cost int64) (int64, error) {
	query :=
		`UPDATE accounts SET credits = credits - $2
		 WHERE user_id = $1 AND credits >= $2
		 RETURNING credits`

	var balance int64
	err := r.db.QueryRowContext(ctx, query, userID, cost).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, common.StorageError(err)
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE user_id = $1`, userID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, common.ErrorNotFound
	case err != nil:
		return 0, common.StorageError(err)
	}
	return 0, common.ErrInsufficientCredits
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
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

func (r *PostgresRepository) SetValidity(ctx context.Context, userID int64, expireAt time.Time) error {
	return r.exec(ctx,
		`UPDATE accounts SET validity_expire_at = $2, is_premium = TRUE WHERE user_id = $1`,
		userID, expireAt.UTC())
}

func (r *PostgresRepository) ClearValidity(ctx context.Context, userID int64) error {
	return r.exec(ctx,
		`UPDATE accounts SET validity_expire_at = NULL, is_premium = FALSE WHERE user_id = $1`,
		userID)
}

func (r *PostgresRepository) ResetExpired(ctx context.Context, userID int64) error {
	return r.exec(ctx,
		`UPDATE accounts SET is_premium = FALSE, credits = 0, validity_expire_at = NULL WHERE user_id = $1`,
		userID)
}

func (r *PostgresRepository) UpdatePreferences(ctx context.Context, userID int64, prefs models.Preferences) error {
	voice, speed := prefArgs(prefs)
	return r.exec(ctx,
		`UPDATE accounts
		 SET selected_voice = COALESCE($2, selected_voice),
		     speed_preference = COALESCE($3, speed_preference)
		 WHERE user_id = $1`,
		userID, voice, speed)
}

func prefArgs(p models.Preferences) (sql.NullString, sql.NullString) {
	var voice, speed sql.NullString
	if p.SelectedVoice != nil {
		voice = sql.NullString{String: *p.SelectedVoice, Valid: true}
	}
	if p.Speed != nil {
		speed = sql.NullString{String: string(*p.Speed), Valid: true}
	}
	return voice, speed
}
