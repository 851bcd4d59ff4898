package tts

import (
	"context"

	"github.com/vmihailenco/msgpack/v5"
)

type msgpackPayload struct {
	Text        string   `msgpack:"text"`
	ChunkLength int      `msgpack:"chunk_length"`
	Format      string   `msgpack:"format"`
	MP3Bitrate  int      `msgpack:"mp3_bitrate,omitempty"`
	References  []string `msgpack:"references"`
	ReferenceID string   `msgpack:"reference_id"`
	Normalize   bool     `msgpack:"normalize"`
	Latency     string   `msgpack:"latency"`
}

// MsgpackBackend sends the SDK-style msgpack request with the backend
// model in a header.
type MsgpackBackend struct {
	c client
}

func NewMsgpackBackend(o Options) *MsgpackBackend {
	return &MsgpackBackend{c: newClient(o)}
}

func (b *MsgpackBackend) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	format := req.Format
	if format == "" {
		format = FormatMP3
	}

	p := msgpackPayload{
		Text:        req.Text,
		ChunkLength: 200,
		Format:      format,
		References:  []string{},
		ReferenceID: req.VoiceID,
		Normalize:   true,
		Latency:     NormalizeLatency(req.Latency),
	}

	if format == FormatMP3 {
		bitrate := req.MP3Bitrate
		if bitrate == 0 {
			bitrate = b.c.mp3Bitrate
		}
		switch bitrate {
		case 64, 128, 192:
			p.MP3Bitrate = bitrate
		}
	}

	body, err := msgpack.Marshal(&p)
	if err != nil {
		return nil, err
	}

	return b.c.post(ctx, body, map[string]string{
		"Content-Type": "application/msgpack",
		"model":        b.c.model,
	})
}
