package redact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPolicy(t *testing.T) {
	p, err := ReadPolicy(strings.NewReader(`
version: "2025-03-01"
rules:
  - pattern: buyerId
    mask: 10
  - pattern: email
    mask: 5
`))
	require.NoError(t, err)

	assert.Equal(t, "2025-03-01", p.Version())
	require.Len(t, p.Rules(), 2)
	assert.Equal(t, "buyerId", p.Rules()[0].Pattern)

	got, ok := p.Mask("contact.Email", "a@b.example")
	require.True(t, ok)
	assert.Equal(t, "a@b.ex*****", got)
}

func TestReadPolicy_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "empty document", doc: "", wantErr: "no rules"},
		{name: "missing version", doc: "rules:\n  - pattern: userId\n    mask: 3\n", wantErr: "version"},
		{name: "unknown field", doc: "version: v1\nrules:\n  - pattern: userId\n    chars: 3\n", wantErr: "decode"},
		{name: "no rules", doc: "version: v1\n", wantErr: "no rules"},
		{name: "negative mask", doc: "version: v1\nrules:\n  - pattern: userId\n    mask: -2\n", wantErr: "negative mask"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPolicy(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		p, err := LoadPolicy("")
		require.NoError(t, err)
		assert.Equal(t, PolicyVersion, p.Version())
		assert.Len(t, p.Rules(), len(DefaultRules))
	})

	t.Run("file on disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: v2\nrules:\n  - pattern: userId\n    mask: 4\n"), 0o600))

		p, err := LoadPolicy(path)
		require.NoError(t, err)
		assert.Equal(t, "v2", p.Version())

		got, ok := p.Mask("userId", "abcdef")
		require.True(t, ok)
		assert.Equal(t, "ab****", got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
