package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamples(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"files", "hello", "locks", "threads"}, names)

	// The archive is up to date with the sources.
	for _, name := range names {
		src, err := Sample(name)
		require.NoError(t, err)
		disk, err := os.ReadFile(filepath.Join("samples", name+".s"))
		require.NoError(t, err)
		assert.Equal(t, string(disk), src, name)
	}

	_, err = Sample("nope")
	assert.ErrorIs(t, err, ErrUnknownSample)
}
