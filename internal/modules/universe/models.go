// Package universe provides the company directory used to enrich correlation data.
package universe

import (
	"strings"

	"github.com/aristath/corrscope/internal/utils"
)

// Company is a directory entry: identity plus the sector/market cap metadata the
// correlation feed does not carry.
type Company struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	Sector    string  `json:"sector"`
	MarketCap float64 `json:"marketCap"`
}

// companyJSON accepts market caps published either as numbers or strings.
type companyJSON struct {
	Ticker    string           `json:"ticker"`
	Name      string           `json:"name"`
	Sector    string           `json:"sector"`
	MarketCap utils.LooseFloat `json:"marketCap"`
}

// Directory is a ticker-keyed lookup of companies.
type Directory map[string]Company

// NormalizeTicker canonicalizes tickers for lookups.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// NewDirectory builds a directory from a company list. Later entries win on duplicates;
// entries without a ticker are skipped.
func NewDirectory(companies []Company) Directory {
	dir := make(Directory, len(companies))
	for _, c := range companies {
		key := NormalizeTicker(c.Ticker)
		if key == "" {
			continue
		}
		c.Ticker = key
		dir[key] = c
	}
	return dir
}

// Lookup returns the company for a ticker. A nil directory never matches.
func (d Directory) Lookup(ticker string) (Company, bool) {
	if d == nil {
		return Company{}, false
	}
	c, ok := d[NormalizeTicker(ticker)]
	return c, ok
}

// Companies returns the directory entries in no particular order.
func (d Directory) Companies() []Company {
	out := make([]Company, 0, len(d))
	for _, c := range d {
		out = append(out, c)
	}
	return out
}
