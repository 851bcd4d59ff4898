// Package tts talks to the Fish Audio synthesis API. Opus requests go
// through the JSON endpoint; other formats use the msgpack request object
// the official SDK sends.
package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/netx"
)

const (
	FormatOpus = "opus"
	FormatMP3  = "mp3"
	FormatWAV  = "wav"
	FormatPCM  = "pcm"

	LatencyLow      = "low"
	LatencyNormal   = "normal"
	LatencyBalanced = "balanced"

	ttsPath = "/v1/tts"
)

type Request struct {
	Text    string
	VoiceID string
	Format  string
	// Speed is sent only when it falls within [0.5, 1.3].
	Speed   float64
	Latency string
	// MP3Bitrate of zero means the backend default.
	MP3Bitrate int
}

type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

type Options struct {
	BaseURL string
	APIKey  string
	// Model is the backend name, e.g. "s1".
	Model      string
	MP3Bitrate int
	Timeout    time.Duration
	HTTPClient *http.Client
}

type client struct {
	baseURL    string
	apiKey     string
	model      string
	mp3Bitrate int
	http       *http.Client
}

func newClient(o Options) client {
	hc := o.HTTPClient
	if hc == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return client{
		baseURL:    strings.TrimRight(o.BaseURL, "/"),
		apiKey:     o.APIKey,
		model:      o.Model,
		mp3Bitrate: o.MP3Bitrate,
		http:       hc,
	}
}

func (c client) post(ctx context.Context, body []byte, headers map[string]string) ([]byte, error) {
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	audio, err := netx.PostBytes(ctx, c.http, c.baseURL+ttsPath, body, headers)
	if err != nil {
		var se *netx.StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("tts failed: HTTP %d: %s", se.Code, se.Body)
		}
		return nil, fmt.Errorf("tts failed: %w", err)
	}
	if len(audio) == 0 {
		return nil, common.ErrEmptyAudio
	}
	return audio, nil
}

// NormalizeLatency maps anything the API does not accept to "balanced".
func NormalizeLatency(l string) string {
	switch l {
	case LatencyLow, LatencyNormal, LatencyBalanced:
		return l
	default:
		return LatencyBalanced
	}
}

func speedInRange(s float64) bool {
	return s >= 0.5 && s <= 1.3
}

// Router sends opus requests to the direct backend and everything else to
// the msgpack backend.
type Router struct {
	Direct  Synthesizer
	Msgpack Synthesizer
}

func New(o Options) *Router {
	return &Router{
		Direct:  NewDirectBackend(o),
		Msgpack: NewMsgpackBackend(o),
	}
}

func (r *Router) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if req.Format == FormatOpus {
		return r.Direct.Synthesize(ctx, req)
	}
	return r.Msgpack.Synthesize(ctx, req)
}
