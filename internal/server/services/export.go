package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/voxbot/internal/server/models"
)

var exportHeader = []string{
	"user_id", "username", "credits", "is_premium", "validity_expire_at",
	"selected_voice", "speed", "voices",
}

// ExportCSV writes every account, one row each, in user id order.
func (s *LedgerService) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}

	artifacts := s.Repos.Artifacts(s.DB)
	rows := 0
	err := s.EachAccount(ctx, func(a *models.Account) error {
		n, err := artifacts.CountByUser(ctx, a.UserID)
		if err != nil {
			return fmt.Errorf("count voices of %d: %w", a.UserID, err)
		}
		if err := cw.Write(exportRow(a, n)); err != nil {
			return err
		}
		rows++
		return nil
	})
	if err != nil {
		return rows, err
	}

	cw.Flush()
	return rows, cw.Error()
}

func exportRow(a *models.Account, voices int64) []string {
	expire := ""
	if a.ValidityExpireAt != nil {
		expire = a.ValidityExpireAt.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.FormatInt(a.UserID, 10),
		a.Username,
		strconv.FormatInt(a.Credits, 10),
		strconv.FormatBool(a.IsPremium),
		expire,
		a.SelectedVoice,
		string(a.SpeedPreference.OrDefault()),
		strconv.FormatInt(voices, 10),
	}
}
