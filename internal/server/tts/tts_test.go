package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dmitrijs2005/voxbot/internal/common"
)

type captured struct {
	path    string
	headers http.Header
	body    []byte
}

func newServer(t *testing.T, status int, reply []byte) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		c.headers = r.Header.Clone()
		c.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		_, _ = w.Write(reply)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func opts(url string) Options {
	return Options{BaseURL: url + "/", APIKey: "key", Model: "s1", MP3Bitrate: 128}
}

func TestDirectBackend_Payload(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, []byte("OggS-bytes"))

	audio, err := NewDirectBackend(opts(srv.URL)).Synthesize(context.Background(), Request{
		Text: "Hello", VoiceID: "v1", Format: FormatOpus, Speed: 0.94, Latency: "slow",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("OggS-bytes"), audio)

	assert.Equal(t, "/v1/tts", got.path)
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
	assert.Equal(t, "application/octet-stream", got.headers.Get("Accept"))
	assert.Equal(t, "Bearer key", got.headers.Get("Authorization"))

	var p map[string]any
	require.NoError(t, json.Unmarshal(got.body, &p))
	assert.Equal(t, "Hello", p["text"])
	assert.Equal(t, "v1", p["reference_id"])
	assert.Equal(t, "opus", p["format"])
	assert.Equal(t, "s1", p["model"])
	assert.Equal(t, true, p["normalize"])
	assert.Equal(t, "balanced", p["latency"], "unsupported latency falls back")
	assert.EqualValues(t, 48, p["opus_bitrate"])
	assert.EqualValues(t, 0.94, p["speed"])
}

func TestDirectBackend_SpeedOutOfRangeOmitted(t *testing.T) {
	for _, speed := range []float64{0, 0.49, 1.31} {
		srv, got := newServer(t, http.StatusOK, []byte("a"))
		_, err := NewDirectBackend(opts(srv.URL)).Synthesize(context.Background(), Request{Text: "x", Speed: speed, Latency: LatencyLow})
		require.NoError(t, err)

		var p map[string]any
		require.NoError(t, json.Unmarshal(got.body, &p))
		_, has := p["speed"]
		assert.False(t, has, "speed %v must be omitted", speed)
		assert.Equal(t, "low", p["latency"])
	}
}

func TestDirectBackend_Errors(t *testing.T) {
	t.Run("non-200 carries status and body", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusPaymentRequired, []byte(`{"message":"insufficient balance"}`))
		_, err := NewDirectBackend(opts(srv.URL)).Synthesize(context.Background(), Request{Text: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 402")
		assert.Contains(t, err.Error(), "insufficient balance")
	})

	t.Run("empty body", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, nil)
		_, err := NewDirectBackend(opts(srv.URL)).Synthesize(context.Background(), Request{Text: "x"})
		assert.True(t, errors.Is(err, common.ErrEmptyAudio))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, nil)
		srv.Close()
		_, err := NewDirectBackend(opts(srv.URL)).Synthesize(context.Background(), Request{Text: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tts failed")
	})
}

func TestMsgpackBackend_Payload(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, []byte("ID3"))

	audio, err := NewMsgpackBackend(opts(srv.URL)).Synthesize(context.Background(), Request{
		Text: "Hi", VoiceID: "v2", Format: FormatMP3,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3"), audio)
	assert.Equal(t, "application/msgpack", got.headers.Get("Content-Type"))
	assert.Equal(t, "s1", got.headers.Get("model"))

	var p map[string]any
	require.NoError(t, msgpack.Unmarshal(got.body, &p))
	assert.Equal(t, "Hi", p["text"])
	assert.Equal(t, "v2", p["reference_id"])
	assert.Equal(t, "mp3", p["format"])
	assert.EqualValues(t, 128, p["mp3_bitrate"])
}

func TestMsgpackBackend_Bitrate(t *testing.T) {
	cases := []struct {
		name    string
		format  string
		bitrate int
		want    any
	}{
		{"explicit 192", FormatMP3, 192, int64(192)},
		{"unsupported dropped", FormatMP3, 96, nil},
		{"wav never carries bitrate", FormatWAV, 128, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, got := newServer(t, http.StatusOK, []byte("x"))
			o := opts(srv.URL)
			o.MP3Bitrate = 0
			_, err := NewMsgpackBackend(o).Synthesize(context.Background(), Request{Text: "x", Format: tc.format, MP3Bitrate: tc.bitrate})
			require.NoError(t, err)

			var p map[string]any
			require.NoError(t, msgpack.Unmarshal(got.body, &p))
			v, has := p["mp3_bitrate"]
			if tc.want == nil {
				assert.False(t, has)
				return
			}
			assert.EqualValues(t, tc.want, v)
		})
	}
}

type stubSynth struct {
	calls int
}

func (s *stubSynth) Synthesize(context.Context, Request) ([]byte, error) {
	s.calls++
	return []byte("ok"), nil
}

func TestRouter(t *testing.T) {
	direct, packed := &stubSynth{}, &stubSynth{}
	r := &Router{Direct: direct, Msgpack: packed}

	_, _ = r.Synthesize(context.Background(), Request{Format: FormatOpus})
	_, _ = r.Synthesize(context.Background(), Request{Format: FormatMP3})
	_, _ = r.Synthesize(context.Background(), Request{Format: FormatWAV})

	assert.Equal(t, 1, direct.calls)
	assert.Equal(t, 2, packed.calls)
}

func TestNormalizeLatency(t *testing.T) {
	assert.Equal(t, "low", NormalizeLatency("low"))
	assert.Equal(t, "normal", NormalizeLatency("normal"))
	assert.Equal(t, "balanced", NormalizeLatency("slow"))
	assert.Equal(t, "balanced", NormalizeLatency(""))
}
