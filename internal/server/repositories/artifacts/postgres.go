package artifacts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/dbx"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func prepare(a *models.VoiceArtifact) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.VoiceArtifact) (*models.VoiceArtifact, error) {
	prepare(a)

	query :=
		`INSERT INTO voice_artifacts (id, user_id, file_path, created_at)
		 VALUES ($1, $2, $3, $4)`

	if _, err := r.db.ExecContext(ctx, query, a.ID, a.UserID, a.FilePath, a.CreatedAt); err != nil {
		return nil, common.StorageError(err)
	}
	return a, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.VoiceArtifact, error) {
	query :=
		`SELECT id, user_id, file_path, created_at FROM voice_artifacts
		 WHERE user_id = $1
		 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, common.StorageError(err)
	}
	defer rows.Close()

	var out []*models.VoiceArtifact
	for rows.Next() {
		var a models.VoiceArtifact
		if err := rows.Scan(&a.ID, &a.UserID, &a.FilePath, &a.CreatedAt); err != nil {
			return nil, common.StorageError(err)
		}
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError(err)
	}
	return out, nil
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM voice_artifacts WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, common.StorageError(err)
	}
	return n, nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM voice_artifacts WHERE user_id = $1`, userID)
	if err != nil {
		return 0, common.StorageError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.StorageError(err)
	}
	return n, nil
}
