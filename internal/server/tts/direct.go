package tts

import (
	"context"
	"encoding/json"
)

type directPayload struct {
	Text        string   `json:"text"`
	ReferenceID string   `json:"reference_id"`
	Format      string   `json:"format"`
	Model       string   `json:"model"`
	Normalize   bool     `json:"normalize"`
	Latency     string   `json:"latency"`
	OpusBitrate int      `json:"opus_bitrate"`
	Speed       *float64 `json:"speed,omitempty"`
}

// DirectBackend posts JSON and reads raw audio back.
type DirectBackend struct {
	c client
}

func NewDirectBackend(o Options) *DirectBackend {
	return &DirectBackend{c: newClient(o)}
}

func (b *DirectBackend) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	p := directPayload{
		Text:        req.Text,
		ReferenceID: req.VoiceID,
		Format:      FormatOpus,
		Model:       b.c.model,
		Normalize:   true,
		Latency:     NormalizeLatency(req.Latency),
		OpusBitrate: 48,
	}
	if speedInRange(req.Speed) {
		s := req.Speed
		p.Speed = &s
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return b.c.post(ctx, body, map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/octet-stream",
	})
}
