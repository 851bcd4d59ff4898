package admins

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	return common.StorageError(err)
}

func (r *PostgresRepository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM admins WHERE user_id = $1`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, common.StorageError(err)
	}
	return true, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]int64, error) {
	return listIDs(ctx, r.db)
}

func listIDs(ctx context.Context, db dbx.DBTX) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT user_id FROM admins ORDER BY user_id`)
	if err != nil {
		return nil, common.StorageError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, common.StorageError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError(err)
	}
	return ids, nil
}
