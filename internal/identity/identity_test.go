package identity_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartirrigation/device-agent/internal/identity"
)

func TestGenerateShape(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	require.Len(t, id, 24)
	require.True(t, identity.Valid(id))
}

func TestGenerateUnique(t *testing.T) {
	a, err := identity.Generate()
	require.NoError(t, err)
	b, err := identity.Generate()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestLoadOrCreatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.txt")

	first, err := identity.LoadOrCreate(path)
	require.NoError(t, err)
	require.True(t, identity.Valid(first))

	// A second load returns the same durable id.
	second, err := identity.LoadOrCreate(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestLoadOrCreateReplacesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.txt")
	require.NoError(t, os.WriteFile(path, []byte("not-an-id\n"), 0o600))

	id, err := identity.LoadOrCreate(path)
	require.NoError(t, err)
	require.True(t, identity.Valid(id))
}
