package trackingid

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id, err := Generate(nil)
		require.NoError(t, err)
		require.True(t, Valid(id), id)
		require.NotEqual(t, '0', id[3], "ids stay in the 100000..999999 range")
		seen[id] = struct{}{}
	}
	assert.Greater(t, len(seen), 150)
}

func TestGenerate_ReaderError(t *testing.T) {
	_, err := Generate(bytes.NewReader(nil))
	require.Error(t, err)
}

func TestNormalizeAndValid(t *testing.T) {
	assert.Equal(t, "TRK123456", Normalize("  trk123456 "))
	assert.True(t, Valid("trk123456"))
	assert.True(t, Valid("TRK000000"))
	assert.False(t, Valid("TRK12345"))
	assert.False(t, Valid("TRK1234567"))
	assert.False(t, Valid("ABC123456"))
	assert.False(t, Valid("TRK12345a"))
	assert.False(t, Valid(""))
}

func TestParse(t *testing.T) {
	id, err := Parse("trk654321")
	require.NoError(t, err)
	assert.Equal(t, "TRK654321", id)

	_, err = Parse("PTH-2025-0001")
	require.ErrorIs(t, err, ErrMalformed)
}
