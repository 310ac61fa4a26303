package canned

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harunnryd/libradesk/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, cat.Categories)

	for _, c := range cat.Categories {
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.Icon)
		assert.NotEmpty(t, c.Templates)
	}
}

func TestLoad_FileOverridesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canned.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - name: Hours
    icon: "🕘"
    templates:
      - name: Weekdays
        text: "We're open 8am to 10pm on weekdays."
`), 0o600))

	cat, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cat.Categories, 1)
	assert.Equal(t, "Hours", cat.Categories[0].Name)
	assert.Equal(t, "We're open 8am to 10pm on weekdays.", cat.Categories[0].Templates[0].Text)
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	cat, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Categories)
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse([]byte("categories: [{name: x, templates: [{name: blank}]}]"))
	assert.True(t, errors.IsCategory(err, errors.ErrInvalidInput))

	_, err = Parse([]byte("categories: {"))
	assert.True(t, errors.IsCategory(err, errors.ErrInvalidInput))

	cat, err := Parse(nil)
	require.NoError(t, err)
	assert.NotNil(t, cat.Categories)
}
