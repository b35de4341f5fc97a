package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/aristath/corrscope/internal/modules/universe"
)

var errNotFinite = errors.New("value must be a finite number")

// parseTickers reads ?tickers=a,B, c into normalized tickers in first-seen
// order. Blank entries and repeats are dropped; nil when nothing remains.
func parseTickers(r *http.Request) []string {
	return splitTickers(r.URL.Query().Get("tickers"))
}

func splitTickers(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		t := universe.NormalizeTicker(part)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// floatParam rejects NaN and ±Inf, which the JSON encoder cannot echo back.
func floatParam(raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
