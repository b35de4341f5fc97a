package universe_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/corrscope/internal/modules/universe"
	testingpkg "github.com/aristath/corrscope/internal/testing"
)

func TestCompanyRepository_UpsertAndGet(t *testing.T) {
	db := testingpkg.NewTestDB(t, "universe")
	repo := universe.NewCompanyRepository(db.Conn(), zerolog.Nop())

	require.NoError(t, repo.UpsertAll(testingpkg.NewCompanyFixtures()))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "AAPL", all[0].Ticker, "ordered by ticker")

	xom, err := repo.GetByTicker("xom")
	require.NoError(t, err)
	require.NotNil(t, xom)
	assert.Equal(t, "Energy", xom.Sector)
	assert.Equal(t, 450_000.0, xom.MarketCap)

	missing, err := repo.GetByTicker("NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCompanyRepository_UpsertReplaces(t *testing.T) {
	db := testingpkg.NewTestDB(t, "universe")
	repo := universe.NewCompanyRepository(db.Conn(), zerolog.Nop())

	require.NoError(t, repo.UpsertAll([]universe.Company{{Ticker: "AAPL", Name: "Apple", Sector: "Unknown"}}))
	require.NoError(t, repo.UpsertAll([]universe.Company{{Ticker: "AAPL", Name: "Apple", Sector: "Technology"}}))

	c, err := repo.GetByTicker("AAPL")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Technology", c.Sector)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
