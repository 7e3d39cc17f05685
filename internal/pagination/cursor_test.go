package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor(t *testing.T) {
	ts := time.Date(2026, 5, 2, 18, 4, 30, 123456789, time.UTC)

	encoded := EncodeCursor("doc-1", ts)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", decoded.LastID)
	assert.True(t, decoded.Timestamp.Equal(ts))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_Empty(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := DecodeCursor("not base64!!!")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	noSeparator := base64.StdEncoding.EncodeToString([]byte("just-an-id"))
	_, err = DecodeCursor(noSeparator)
	assert.ErrorIs(t, err, ErrInvalidCursor)

	badTime := base64.StdEncoding.EncodeToString([]byte("id|yesterday"))
	_, err = DecodeCursor(badTime)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestDecodeCursor_IDContainingSeparator(t *testing.T) {
	ts := time.Date(2026, 5, 2, 18, 4, 30, 0, time.UTC)

	// Only the first separator splits; the rest belongs to the ID.
	raw := base64.StdEncoding.EncodeToString([]byte("a|" + ts.Format(time.RFC3339Nano)))
	decoded, err := DecodeCursor(raw)
	require.NoError(t, err)
	assert.Equal(t, "a", decoded.LastID)
}
