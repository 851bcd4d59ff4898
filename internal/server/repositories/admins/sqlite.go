package admins

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO admins (user_id) VALUES (?)`, userID)
	return common.StorageError(err)
}

func (r *SQLiteRepository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM admins WHERE user_id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, common.StorageError(err)
	}
	return true, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]int64, error) {
	return listIDs(ctx, r.db)
}
