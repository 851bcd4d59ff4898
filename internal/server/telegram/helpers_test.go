package telegram

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/voxbot/internal/clock"
	"github.com/dmitrijs2005/voxbot/internal/server/catalog"
	"github.com/dmitrijs2005/voxbot/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/voxbot/internal/server/services"
	"github.com/dmitrijs2005/voxbot/internal/server/sessions"
	"github.com/dmitrijs2005/voxbot/internal/server/tts"
)

const (
	adminID = int64(1000)
	userID  = int64(42)
	marie   = "a5e5bbe15fb6465fb113c1bab4de8b2e"
)

// --- fakes ---

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	// reqErrs is consumed one error per Request call; nil entries succeed.
	reqErrs []error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if len(f.reqErrs) > 0 {
		err := f.reqErrs[0]
		f.reqErrs = f.reqErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns the text of every plain message sent so far.
func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeSender) last() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) lastText() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.requests = nil
}

type fakeSynth struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *fakeSynth) Synthesize(context.Context, tts.Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("OggS"), nil
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return key, nil
}

func (b *memBlobs) Delete(_ context.Context, locator string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, locator)
	return nil
}

// --- fixture ---

type fixture struct {
	bot    *Bot
	sender *fakeSender
	synth  *fakeSynth
	deps   services.Deps
	svc    Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	deps := services.Deps{DB: db, Repos: rm, Clock: clk}

	sender := &fakeSender{}
	synth := &fakeSynth{}
	cat := catalog.Default()
	ledger := services.NewLedgerService(deps)
	svc := Services{
		Ledger: ledger,
		Admins: services.NewAdminService(deps),
		Voice:  services.NewVoiceService(deps, synth, &memBlobs{objects: map[string][]byte{}}, cat, services.VoiceOptions{}),
		Broadcaster: services.NewBroadcaster(ledger, NewNotifier(sender), services.BroadcastOptions{
			Concurrency: 2, Delay: time.Millisecond, Backoff: time.Millisecond,
		}),
	}
	require.NoError(t, svc.Admins.Seed(context.Background(), []int64{adminID}))

	store := sessions.NewMemoryStore(10*time.Minute, 100, clk)
	bot := NewBot(sender, svc, store, Options{AdminContact: "t.me/admin", WebsiteURL: "example.com", Catalog: cat}, nil)
	return &fixture{bot: bot, sender: sender, synth: synth, deps: deps, svc: svc}
}

func textUpdate(from int64, text string) tgbotapi.Update {
	m := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, UserName: "u" + uuid.NewString()[:4]},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{Message: m}
}

func callbackUpdate(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}}
}

func (f *fixture) send(t *testing.T, u tgbotapi.Update) {
	t.Helper()
	f.bot.HandleUpdate(context.Background(), u)
}

var errBoom = errors.New("boom")
