package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjudicator/pkg/platform/sentinel"
)

func TestLibrary_ForDate(t *testing.T) {
	lib := Published()

	doc, err := lib.ForDate(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2025.1", doc.Version)

	doc, err = lib.ForDate(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2026.1", doc.Version)

	_, err = lib.ForDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestLibrary_CiteUsesGoverningVersion(t *testing.T) {
	lib := Published()
	assert.Equal(t, "clause 4.5 (Completed transactions)", lib.Cite("2025.1", ClauseCompletedTransactions))
	assert.Equal(t, "clause 4.5", lib.Cite("1999.9", ClauseCompletedTransactions))
	assert.Equal(t, "clause 99.9", lib.Cite("2026.1", "99.9"))
}

func TestLibrary_VersionsAreIndependent(t *testing.T) {
	lib := Published()
	v1, err := lib.Get("2025.1")
	require.NoError(t, err)
	v2, err := lib.Get("2026.1")
	require.NoError(t, err)
	assert.NotEqual(t, v1.Clauses[ClauseCoolingOff].Text, v2.Clauses[ClauseCoolingOff].Text)
	assert.Equal(t, []string{"2025.1", "2026.1"}, lib.Versions())
}

func TestNewLibrary_RejectsDuplicates(t *testing.T) {
	_, err := NewLibrary(Document{Version: "a"}, Document{Version: "a"})
	require.Error(t, err)
	_, err = NewLibrary(Document{})
	require.Error(t, err)
}
