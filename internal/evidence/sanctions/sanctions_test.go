package sanctions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listYAML = `
version: "2026-10-01"
entries:
  - id: UN-0042
    name: "Viktor Ďurović"
    aliases: ["Viktor Durovic", "V. Durovich"]
    dob: "1971-05-09"
    kind: sanctions
    program: UNSC
  - id: PEP-IN-7
    name: "Rajesh Kumar Mehta"
    kind: pep
  - id: OFAC-9
    name: "Omar Haddad"
`

func TestNormalize(t *testing.T) {
	assert.Equal(t, "durovic viktor", Normalize("  ĎUROVIĆ, Viktor "))
	assert.Equal(t, Normalize("Raj Kumar"), Normalize("KUMAR raj"))
	assert.Equal(t, "", Normalize("--"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Viktor Ďurović", "viktor durovic"))
	assert.Greater(t, Similarity("Omar Hadad", "Omar Haddad"), 0.85)
	assert.Less(t, Similarity("Priya Sharma", "Omar Haddad"), 0.5)
	assert.Equal(t, 0.0, Similarity("", "Omar Haddad"))
}

func TestParse(t *testing.T) {
	list, err := Parse([]byte(listYAML))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-01", list.Version)
	require.Len(t, list.Entries, 3)
	assert.Equal(t, KindSanctions, list.Entries[2].Kind, "kind defaults to sanctions")

	_, err = Parse([]byte("entries: []"))
	require.Error(t, err, "version is mandatory")

	_, err = Parse([]byte("version: x\nentries:\n  - id: a\n    name: b\n    kind: watch"))
	require.Error(t, err)
}

func TestProvider_MatchName(t *testing.T) {
	list, err := Parse([]byte(listYAML))
	require.NoError(t, err)
	p := NewProvider(list, 0)
	ctx := context.Background()

	t.Run("exact match through alias with diacritics folded", func(t *testing.T) {
		got, version, err := p.MatchName(ctx, "DUROVIC Viktor", "1971-05-09")
		require.NoError(t, err)
		assert.Equal(t, "2026-10-01", version)
		require.NotEmpty(t, got)
		assert.Equal(t, "UN-0042", got[0].EntryID)
		assert.True(t, got[0].Exact())
	})

	t.Run("date of birth contradiction downgrades exact", func(t *testing.T) {
		got, _, err := p.MatchName(ctx, "Viktor Durovic", "1990-01-01")
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.True(t, got[0].DOBMismatch)
		assert.False(t, got[0].Exact())
	})

	t.Run("fuzzy spelling variant", func(t *testing.T) {
		got, _, err := p.MatchName(ctx, "Omar Hadad", "")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.False(t, got[0].Exact())
		assert.Greater(t, got[0].Score, DefaultThreshold)
	})

	t.Run("unrelated names do not match", func(t *testing.T) {
		got, _, err := p.MatchName(ctx, "Ananya Iyer", "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := p.MatchName(cctx, "Omar Haddad", "")
		require.Error(t, err)
	})
}

func TestProvider_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(path, []byte(listYAML), 0o600))

	p := NewProvider(List{Version: "empty"}, 0)
	require.NoError(t, p.Reload(path))
	assert.Equal(t, "2026-10-01", p.Version())

	require.Error(t, p.Reload(filepath.Join(dir, "missing.yaml")))
	assert.Equal(t, "2026-10-01", p.Version(), "failed reload keeps the previous snapshot")
}
