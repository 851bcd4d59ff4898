package artifacts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/dbx"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

// SQLiteRepository keeps created_at as unix seconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, a *models.VoiceArtifact) (*models.VoiceArtifact, error) {
	prepare(a)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO voice_artifacts (id, user_id, file_path, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.UserID, a.FilePath, a.CreatedAt.Unix())
	if err != nil {
		return nil, common.StorageError(err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID int64) ([]*models.VoiceArtifact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, file_path, created_at FROM voice_artifacts WHERE user_id = ? ORDER BY created_at, id`,
		userID)
	if err != nil {
		return nil, common.StorageError(err)
	}
	defer rows.Close()

	var out []*models.VoiceArtifact
	for rows.Next() {
		var (
			a       models.VoiceArtifact
			created int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.FilePath, &created); err != nil {
			return nil, common.StorageError(err)
		}
		a.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError(err)
	}
	return out, nil
}

func (r *SQLiteRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM voice_artifacts WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, common.StorageError(err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM voice_artifacts WHERE user_id = ?`, userID)
	if err != nil {
		return 0, common.StorageError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.StorageError(err)
	}
	return n, nil
}
