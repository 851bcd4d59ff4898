package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Len(t, c.Voices, 8)
	require.Len(t, c.Plans, 3)
	assert.Equal(t, "Marie", c.VoiceName("a5e5bbe15fb6465fb113c1bab4de8b2e"))
	assert.Equal(t, "unknown-id", c.VoiceName("unknown-id"))
	assert.True(t, c.HasVoice("c5e4c4c57a084a0f9b5b277d36546ef0"))
	assert.False(t, c.HasVoice("nope"))
	assert.Equal(t, Plan{Name: "Pro", Credits: 200, Price: "$15", ValidityDays: 30}, c.Plans[1])
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	p := writeYAML(t, `
voices:
  - id: v1
    name: Alpha
  - id: v2
    name: Beta
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, []Voice{{"v1", "Alpha"}, {"v2", "Beta"}}, c.Voices)
	assert.Equal(t, Default().Plans, c.Plans, "missing section keeps defaults")
}

func TestLoad_EmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeYAML(t, "voices: [oops"))
	assert.Error(t, err)

	_, err = Load(writeYAML(t, "voices:\n  - id: v1\n    name: A\n  - id: v1\n    name: B\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = Load(writeYAML(t, "voices:\n  - id: v1\n"))
	assert.Error(t, err)
}
