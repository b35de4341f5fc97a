package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/aristath/corrscope/internal/testing"
)

func TestParseFeed(t *testing.T) {
	records, err := ParseFeed([]byte(testingpkg.FeedFixtureJSON))
	require.NoError(t, err)
	require.Len(t, records, 4, "record without ticker is skipped")

	aapl := records[0]
	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.Equal(t, "Apple", aapl.CorpName)
	assert.Equal(t, "2024-06-28", aapl.Date)
	assert.Equal(t, UnknownSector, aapl.Sector)
	assert.InDelta(t, 0.62, aapl.FwdSalesCorr, 1e-12)
	assert.InDelta(t, 0.55, aapl.FwdEpsCorr, 1e-12)
	assert.InDelta(t, -0.21, aapl.HighYieldCorr, 1e-12)
	assert.InDelta(t, 0.21, aapl.HighYieldCorrInverted, 1e-12)
	assert.InDelta(t, -0.18, aapl.USHighYieldCorr, 1e-12)
	assert.InDelta(t, 214.29, aapl.Price, 1e-12)

	jnj := records[3]
	assert.Equal(t, 0.0, jnj.FwdEpsCorr, "unparseable value degrades to 0")
	assert.Equal(t, 0.0, jnj.USHighYieldCorr, "empty value degrades to 0")
}

func TestParseFeed_NumbersAndDuplicates(t *testing.T) {
	doc := `{"data":{"technical":{"T_Correlation":[
		{"Ticker":"aapl","Fwd 12M EPS":0.5,"Fwd 12M Sales":null},
		{"Ticker":"MSFT","Fwd 12M EPS":"1,000"},
		{"Ticker":"AAPL","Fwd 12M EPS":"0.7","HYY":"NaN"}
	]}}}`

	records, err := ParseFeed([]byte(doc))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "AAPL", records[0].Ticker, "first position kept")
	assert.InDelta(t, 0.7, records[0].FwdEpsCorr, 1e-12, "last record wins")
	assert.Equal(t, 0.0, records[0].HighYieldCorr, "non-finite degrades to 0")
	assert.Equal(t, 1000.0, records[1].FwdEpsCorr)
}

func TestParseFeed_EmptyAndMalformed(t *testing.T) {
	records, err := ParseFeed([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = ParseFeed([]byte(`{"data":`))
	assert.Error(t, err)
}
