package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/clinicflow/internal/platform/db"
)

func TestEmbeddedMigrations(t *testing.T) {
	migs, err := db.NewMigrator(nil, FS).LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 2)

	assert.Equal(t, 1, migs[0].Version)
	assert.Contains(t, migs[0].SQL, "CREATE TABLE IF NOT EXISTS appointments")
	assert.Equal(t, 2, migs[1].Version)
	assert.Contains(t, migs[1].SQL, "physio_treatment_plans")

	for _, m := range migs {
		assert.True(t, strings.Contains(m.SQL, "version_id"), "%s must carry version_id", m.Name)
	}
}
