package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/voxbot/internal/server/metrics"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type recordingHandler struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
	panics  bool
}

func (h *recordingHandler) HandleUpdate(_ context.Context, u tgbotapi.Update) {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, u)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := NewRouter(NewHandler(fakePinger{}, nil, nil), nil, "")
	rec := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	r = NewRouter(NewHandler(fakePinger{err: errors.New("down")}, nil, nil), nil, "")
	rec = do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, r, http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	m.IncExpired()
	r := NewRouter(NewHandler(fakePinger{}, nil, nil), m.Handler(), "")

	rec := do(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "voxbot_reaper_expired_accounts_total 1")
}

func TestWebhook(t *testing.T) {
	updates := &recordingHandler{}
	r := NewRouter(NewHandler(fakePinger{}, updates, nil), nil, "/telegram/secret")

	rec := do(t, r, http.MethodPost, "/telegram/secret",
		`{"update_id": 9, "message": {"message_id": 1, "text": "hi", "chat": {"id": 5, "type": "private"}}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, updates.updates, 1)
	assert.Equal(t, 9, updates.updates[0].UpdateID)
	assert.Equal(t, "hi", updates.updates[0].Message.Text)

	rec = do(t, r, http.MethodPost, "/telegram/secret", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/telegram/other", "{}")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhook_NotRoutedWhenPolling(t *testing.T) {
	r := NewRouter(NewHandler(fakePinger{}, &recordingHandler{}, nil), nil, "")
	rec := do(t, r, http.MethodPost, "/telegram/secret", "{}")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecovery(t *testing.T) {
	r := NewRouter(NewHandler(fakePinger{}, &recordingHandler{panics: true}, nil), nil, "/hook")
	rec := do(t, r, http.MethodPost, "/hook", `{"update_id": 1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
