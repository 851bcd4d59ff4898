package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/dbx"
	"github.com/dmitrijs2005/voxbot/internal/logging"
	"github.com/dmitrijs2005/voxbot/internal/server/blobstore"
	"github.com/dmitrijs2005/voxbot/internal/server/catalog"
	"github.com/dmitrijs2005/voxbot/internal/server/models"
	"github.com/dmitrijs2005/voxbot/internal/server/tts"
)

const DefaultMaxTTSChars = 200

type VoiceOptions struct {
	MaxChars        int
	CostPerVoice    int64
	RequireValidity bool
}

// Voice is a finished synthesis.
type Voice struct {
	Audio      []byte
	FilePath   string
	Remaining  int64
	Cost       int64
	VoiceName  string
	SpeedLabel string
}

// VoiceService turns a user's text into stored, paid-for audio.
type VoiceService struct {
	Deps
	synth   tts.Synthesizer
	blobs   blobstore.Store
	catalog *catalog.Catalog
	opts    VoiceOptions
	log     logging.Logger
}

func NewVoiceService(d Deps, synth tts.Synthesizer, blobs blobstore.Store, cat *catalog.Catalog, o VoiceOptions) *VoiceService {
	d = d.withDefaults()
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxTTSChars
	}
	if o.CostPerVoice <= 0 {
		o.CostPerVoice = common.DefaultCostPerVoice
	}
	if cat == nil {
		cat = catalog.Default()
	}
	return &VoiceService{
		Deps:    d,
		synth:   synth,
		blobs:   blobs,
		catalog: cat,
		opts:    o,
		log:     d.Logger.With("module", "voice"),
	}
}

func (s *VoiceService) MaxChars() int { return s.opts.MaxChars }

// check applies every precondition that does not need the synthesizer.
func (s *VoiceService) check(a *models.Account) error {
	if a.Credits <= 0 {
		return common.ErrInsufficientCredits
	}
	if s.opts.RequireValidity && !a.IsValid(s.Clock.Now()) {
		return common.ErrValidityRequired
	}
	if a.SelectedVoice == "" {
		return common.ErrNoVoiceSelected
	}
	return nil
}

// Generate synthesizes text with the user's selected voice and speed,
// stores the audio and debits the voice cost. Nothing is charged when any
// step fails, and no synthesis is attempted without credits.
func (s *VoiceService) Generate(ctx context.Context, userID int64, text string) (*Voice, error) {
	if n := utf8.RuneCountInString(text); n > s.opts.MaxChars {
		return nil, fmt.Errorf("%w: %d > %d", common.ErrTextTooLong, n, s.opts.MaxChars)
	}

	a, err := s.Repos.Accounts(s.DB).Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.check(a); err != nil {
		return nil, err
	}

	speed := a.SpeedPreference.OrDefault()
	req := tts.Request{
		Text:    tts.Humanize(text),
		VoiceID: a.SelectedVoice,
		Format:  tts.FormatOpus,
		Speed:   speed.Value(),
		Latency: tts.LatencyBalanced,
	}

	start := time.Now()
	audio, err := s.synth.Synthesize(ctx, req)
	s.Metrics.ObserveSynthesis(err == nil, time.Since(start).Seconds())
	if err != nil {
		s.log.Warn(ctx, "synthesis failed", "user_id", userID, "voice", a.SelectedVoice, "error", err)
		return nil, err
	}

	path, remaining, err := s.persist(ctx, userID, req.Format, audio)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "voice generated", "user_id", userID, "voice", a.SelectedVoice, "bytes", len(audio), "remaining", remaining)
	return &Voice{
		Audio:      audio,
		FilePath:   path,
		Remaining:  remaining,
		Cost:       s.opts.CostPerVoice,
		VoiceName:  s.catalog.VoiceName(a.SelectedVoice),
		SpeedLabel: speed.Label(),
	}, nil
}

// persist stores audio and, under the user's lock, records the artifact
// and takes the credit in one transaction.
func (s *VoiceService) persist(ctx context.Context, userID int64, format string, audio []byte) (string, int64, error) {
	unlock := s.Locks.Lock(userID)
	defer unlock()

	// the reaper may have revoked the account while we were synthesizing
	a, err := s.Repos.Accounts(s.DB).Get(ctx, userID)
	if err != nil {
		return "", 0, err
	}
	if err := s.check(a); err != nil {
		return "", 0, err
	}

	path, err := s.blobs.Put(ctx, BlobKey(userID, s.Clock.Now(), format), audio)
	if err != nil {
		return "", 0, fmt.Errorf("store voice: %w", err)
	}

	var remaining int64
	err = dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.Repos.Artifacts(tx).Create(ctx, &models.VoiceArtifact{UserID: userID, FilePath: path}); err != nil {
			return err
		}
		var err error
		remaining, err = s.Repos.Accounts(tx).ConsumeCredits(ctx, userID, s.opts.CostPerVoice)
		return err
	})
	s.Metrics.ObserveLedger(OpConsume, err)
	if err != nil {
		if derr := s.blobs.Delete(ctx, path); derr != nil {
			s.log.Warn(ctx, "orphaned voice file", "path", path, "error", derr)
		}
		return "", 0, err
	}
	return path, remaining, nil
}

// BlobKey names a stored voice: <user>/tts_<yyyymmdd_hhmmss>_<8 hex>.<ext>.
func BlobKey(userID int64, at time.Time, format string) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%d/tts_%s_%s.%s", userID, at.UTC().Format("20060102_150405"), suffix, extension(format))
}

func extension(format string) string {
	switch format {
	case tts.FormatOpus:
		return "ogg"
	case "":
		return "bin"
	default:
		return format
	}
}
