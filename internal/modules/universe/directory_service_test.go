package universe_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/corrscope/internal/modules/universe"
	testingpkg "github.com/aristath/corrscope/internal/testing"
)

func TestDirectoryService_FileMirroredToRepository(t *testing.T) {
	db := testingpkg.NewTestDB(t, "universe")
	repo := universe.NewCompanyRepository(db.Conn(), zerolog.Nop())

	path := filepath.Join(t.TempDir(), "companies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"ticker":"AAPL","name":"Apple","sector":"Technology","marketCap":3000000},
		{"ticker":"XOM","name":"Exxon","sector":"Energy","marketCap":450000}
	]`), 0644))

	svc := universe.NewDirectoryService(repo, path, zerolog.Nop())
	dir, err := svc.Directory()
	require.NoError(t, err)
	assert.Len(t, dir, 2)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Without the file the mirrored rows are served
	fromRepo, err := universe.NewDirectoryService(repo, "", zerolog.Nop()).Directory()
	require.NoError(t, err)
	c, ok := fromRepo.Lookup("xom")
	assert.True(t, ok)
	assert.Equal(t, "Energy", c.Sector)
}

func TestDirectoryService_NoSource(t *testing.T) {
	dir, err := universe.NewDirectoryService(nil, "", zerolog.Nop()).Directory()
	require.NoError(t, err)
	assert.NotNil(t, dir)
	assert.Empty(t, dir)
}

func TestDirectoryService_MissingFile(t *testing.T) {
	svc := universe.NewDirectoryService(nil, filepath.Join(t.TempDir(), "absent.json"), zerolog.Nop())
	_, err := svc.Directory()
	assert.Error(t, err)
}
