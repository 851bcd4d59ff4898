// Package artifacts records which voice files belong to which user. Removing
// a record never touches the stored file.
package artifacts

import (
	"context"

	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

type Repository interface {
	// Create assigns an id when a.ID is empty and CreatedAt when zero.
	Create(ctx context.Context, a *models.VoiceArtifact) (*models.VoiceArtifact, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.VoiceArtifact, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	// DeleteByUser returns how many records were removed.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}
