package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_AreEmbeddedInOrder(t *testing.T) {
	names, err := fs.Glob(Migrations, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_holders.sql", "00002_copies.sql", "00003_refresh_tokens.sql"}, names)
}

// A loaned copy keeps holder and due date together, so deleting its holder
// must be refused rather than nulling holder_id alone.
func TestCopies_HolderDeleteIsRestricted(t *testing.T) {
	b, err := fs.ReadFile(Migrations, "00002_copies.sql")
	require.NoError(t, err)
	sql := string(b)

	require.Contains(t, sql, "CHECK ((holder_id IS NULL) = (due_at IS NULL))")

	var holderCol string
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "holder_id") {
			holderCol = line
			break
		}
	}
	require.NotEmpty(t, holderCol)
	assert.Contains(t, holderCol, "ON DELETE RESTRICT")
	assert.NotContains(t, holderCol, "SET NULL")
}
