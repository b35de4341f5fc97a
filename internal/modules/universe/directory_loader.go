package universe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ParseDirectory decodes a JSON array of {ticker, name, sector, marketCap} records.
func ParseDirectory(r io.Reader) ([]Company, error) {
	var raw []companyJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode company directory: %w", err)
	}

	companies := make([]Company, 0, len(raw))
	for _, c := range raw {
		if NormalizeTicker(c.Ticker) == "" {
			continue
		}
		companies = append(companies, Company{
			Ticker:    NormalizeTicker(c.Ticker),
			Name:      c.Name,
			Sector:    c.Sector,
			MarketCap: c.MarketCap.Float64(),
		})
	}
	return companies, nil
}

// LoadDirectoryFile reads a company directory from a JSON file.
func LoadDirectoryFile(path string) ([]Company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open company directory %s: %w", path, err)
	}
	defer f.Close()

	companies, err := ParseDirectory(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return companies, nil
}
