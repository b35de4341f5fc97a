package correlation

import (
	"encoding/json"
	"fmt"

	"github.com/aristath/corrscope/internal/modules/universe"
	"github.com/aristath/corrscope/internal/utils"
)

// feedDocument mirrors the upstream JSON layout
type feedDocument struct {
	Data struct {
		Technical struct {
			Correlations []feedRecord `json:"T_Correlation"`
		} `json:"technical"`
	} `json:"data"`
}

// feedRecord carries the upstream field names. Numerics arrive as strings.
type feedRecord struct {
	Ticker                string           `json:"Ticker"`
	Corp                  string           `json:"Corp"`
	Date                  string           `json:"Date"`
	FwdSalesCorr          utils.LooseFloat `json:"Fwd 12M Sales"`
	FwdEpsCorr            utils.LooseFloat `json:"Fwd 12M EPS"`
	HighYieldCorr         utils.LooseFloat `json:"HYY"`
	HighYieldCorrInverted utils.LooseFloat `json:"HYY (inverted)"`
	USHighYieldCorr       utils.LooseFloat `json:"US HYY"`
	Price                 utils.LooseFloat `json:"주가"`
}

// ParseFeed decodes a correlation feed document.
// Unparseable numerics become 0, records without a ticker are skipped and the last
// record wins for duplicate tickers (keeping the first occurrence's position).
func ParseFeed(data []byte) ([]Record, error) {
	var doc feedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode correlation feed: %w", err)
	}

	raw := doc.Data.Technical.Correlations
	records := make([]Record, 0, len(raw))
	position := make(map[string]int, len(raw))

	for _, fr := range raw {
		ticker := universe.NormalizeTicker(fr.Ticker)
		if ticker == "" {
			continue
		}
		rec := Record{
			Ticker:                ticker,
			CorpName:              fr.Corp,
			Date:                  fr.Date,
			Sector:                UnknownSector,
			Price:                 fr.Price.Float64(),
			FwdSalesCorr:          fr.FwdSalesCorr.Float64(),
			FwdEpsCorr:            fr.FwdEpsCorr.Float64(),
			HighYieldCorr:         fr.HighYieldCorr.Float64(),
			HighYieldCorrInverted: fr.HighYieldCorrInverted.Float64(),
			USHighYieldCorr:       fr.USHighYieldCorr.Float64(),
		}
		if i, ok := position[ticker]; ok {
			records[i] = rec
			continue
		}
		position[ticker] = len(records)
		records = append(records, rec)
	}

	return records, nil
}
