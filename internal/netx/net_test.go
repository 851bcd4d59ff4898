package netx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostBytes(t *testing.T) {
	payload := []byte("hello")

	t.Run("success 200 OK", func(t *testing.T) {
		var gotBody []byte
		var gotCT, gotMethod string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)
			_, _ = w.Write([]byte("audio-bytes"))
		}))
		defer ts.Close()

		out, err := PostBytes(context.Background(), ts.Client(), ts.URL+"/v1/tts", payload,
			map[string]string{"Content-Type": "application/json"})
		require.NoError(t, err)
		assert.Equal(t, []byte("audio-bytes"), out)
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "application/json", gotCT)
		assert.Equal(t, payload, gotBody)
	})

	t.Run("non-200 -> StatusError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte("no balance"))
		}))
		defer ts.Close()

		_, err := PostBytes(context.Background(), nil, ts.URL, payload, nil)
		require.Error(t, err)

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusPaymentRequired, se.Code)
		assert.Equal(t, "no balance", se.Body)
		assert.True(t, strings.Contains(err.Error(), "402"))
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		_, err := PostBytes(context.Background(), nil, ts.URL, payload, nil)
		require.Error(t, err)
		var se *StatusError
		assert.False(t, errors.As(err, &se))
	})

	t.Run("context deadline", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// the server only notices a client hang-up once the body is read
			_, _ = io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
		}))
		defer ts.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := PostBytes(ctx, nil, ts.URL, payload, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}
