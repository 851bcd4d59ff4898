package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_RelativeResolvesAgainstCWD(t *testing.T) {
	tmp, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	defer chdir(t, tmp)()

	got, err := EnsureDir("voices")
	require.NoError(t, err)

	want := filepath.Join(tmp, "voices")
	gotResolved, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	require.Equal(t, want, gotResolved)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	first, err := EnsureDir(dir)
	require.NoError(t, err)
	second, err := EnsureDir(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	p := filepath.Join(t.TempDir(), "voices")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o660))

	_, err := EnsureDir(p)
	require.Error(t, err)
}

func TestRemoveIfExists(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.ogg")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o660))

	require.NoError(t, RemoveIfExists(p))
	_, err := os.Stat(p)
	require.True(t, os.IsNotExist(err))

	// second call hits a missing file
	require.NoError(t, RemoveIfExists(p))
}

func TestRemoveIfExists_NonEmptyDirFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o660))

	require.Error(t, RemoveIfExists(dir))
}

func TestWriteFileAtomic(t *testing.T) {
	p := filepath.Join(t.TempDir(), "42", "tts.ogg")

	require.NoError(t, WriteFileAtomic(p, []byte("audio")))
	got, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, []byte("audio"), got)

	require.NoError(t, WriteFileAtomic(p, []byte("again")))
	got, err = os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, []byte("again"), got)

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}
