package models

import "time"

// VoiceArtifact records one synthesized file. FilePath is the blob store
// locator returned by Put.
type VoiceArtifact struct {
	ID        string
	UserID    int64
	FilePath  string
	CreatedAt time.Time
}
