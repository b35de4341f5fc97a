package testing

import (
	"github.com/aristath/corrscope/internal/modules/universe"
)

// NewCompanyFixtures returns a small company directory for tests
func NewCompanyFixtures() []universe.Company {
	return []universe.Company{
		{Ticker: "AAPL", Name: "Apple Inc.", Sector: "Technology", MarketCap: 3_000_000},
		{Ticker: "MSFT", Name: "Microsoft Corporation", Sector: "Technology", MarketCap: 2_800_000},
		{Ticker: "XOM", Name: "Exxon Mobil Corporation", Sector: "Energy", MarketCap: 450_000},
		{Ticker: "JNJ", Name: "Johnson & Johnson", Sector: "Healthcare", MarketCap: 380_000},
	}
}

// FeedFixtureJSON is a correlation feed document in the upstream shape: string-typed
// numerics, one malformed field and one record without a ticker.
const FeedFixtureJSON = `{
  "data": {
    "technical": {
      "T_Correlation": [
        {"Ticker": "AAPL", "Corp": "Apple", "Date": "2024-06-28", "Fwd 12M Sales": "0.62", "Fwd 12M EPS": "0.55", "HYY": "-0.21", "HYY (inverted)": "0.21", "US HYY": "-0.18", "주가": "214.29"},
        {"Ticker": "MSFT", "Corp": "Microsoft", "Date": "2024-06-28", "Fwd 12M Sales": "0.58", "Fwd 12M EPS": "0.61", "HYY": "-0.25", "HYY (inverted)": "0.25", "US HYY": "-0.2", "주가": "446.95"},
        {"Ticker": "XOM", "Corp": "Exxon", "Date": "2024-06-28", "Fwd 12M Sales": "-0.35", "Fwd 12M EPS": "-0.41", "HYY": "0.33", "HYY (inverted)": "-0.33", "US HYY": "0.3", "주가": "115.12"},
        {"Ticker": "JNJ", "Corp": "J&J", "Date": "2024-06-28", "Fwd 12M Sales": "0.05", "Fwd 12M EPS": "n/a", "HYY": "0.02", "HYY (inverted)": "-0.02", "US HYY": "", "주가": "146.16"},
        {"Ticker": "", "Corp": "Orphan", "Fwd 12M Sales": "0.9"}
      ]
    }
  }
}`
