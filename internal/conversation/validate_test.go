package conversation

import (
	"strings"
	"testing"

	deskErrors "github.com/harunnryd/libradesk/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSessionID(t *testing.T) {
	id, err := NormalizeSessionID("  web-123 ")
	require.NoError(t, err)
	assert.Equal(t, "web-123", id)

	_, err = NormalizeSessionID("   ")
	assert.True(t, deskErrors.IsCategory(err, deskErrors.ErrInvalidInput))

	_, err = NormalizeSessionID(strings.Repeat("a", MaxSessionIDLength))
	assert.NoError(t, err)
	_, err = NormalizeSessionID(strings.Repeat("a", MaxSessionIDLength+1))
	assert.True(t, deskErrors.IsCategory(err, deskErrors.ErrInvalidInput))
}

func TestNormalizeText(t *testing.T) {
	text, err := NormalizeText("\n where are the stacks? ", 0)
	require.NoError(t, err)
	assert.Equal(t, "where are the stacks?", text)

	_, err = NormalizeText(" \t ", 10)
	assert.True(t, deskErrors.IsCategory(err, deskErrors.ErrInvalidInput))

	// runes, not bytes
	_, err = NormalizeText(strings.Repeat("é", 10), 10)
	assert.NoError(t, err)
	_, err = NormalizeText(strings.Repeat("é", 11), 10)
	assert.True(t, deskErrors.IsCategory(err, deskErrors.ErrInvalidInput))
}
