package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreFetchDeleteRoundTrip(t *testing.T) {
	t.Parallel()

	s := Store{Dir: t.TempDir()}
	require.NoError(t, s.StoreProviderKey("OpenAI", "sk-test-123"))

	// Lookup is case and whitespace insensitive.
	key, err := s.FetchProviderKey("  openai ")
	require.NoError(t, err)
	require.Equal(t, "sk-test-123", key)

	// The file never holds the key in the clear.
	data, err := os.ReadFile(filepath.Join(s.Dir, fileName))
	require.NoError(t, err)
	require.NotContains(t, string(data), "sk-test-123")

	info, err := os.Stat(filepath.Join(s.Dir, fileName))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.DeleteProviderKey("openai"))
	_, err = s.FetchProviderKey("openai")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFetchMissingProvider(t *testing.T) {
	t.Parallel()

	s := Store{Dir: t.TempDir()}
	_, err := s.FetchProviderKey("openai")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.FetchProviderKey("")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
