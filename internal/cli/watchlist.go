package cli

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aristath/corrscope/internal/modules/universe"
)

type watchlistItem struct {
	Sym    string   `yaml:"sym"`
	Weight *float64 `yaml:"weight"`
}

// watchlist is a ticker list with optional weights, loaded from YAML.
// Weights is nil unless every item carries one.
type watchlist struct {
	Tickers []string
	Weights []float64
}

// parseWatchlist accepts a YAML sequence of items with a sym and an optional
// weight, or a map holding the same sequence under "items".
func parseWatchlist(data []byte) (watchlist, error) {
	var items []watchlistItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		var alt struct {
			Items []watchlistItem `yaml:"items"`
		}
		if err2 := yaml.Unmarshal(data, &alt); err2 != nil {
			return watchlist{}, fmt.Errorf("parse watchlist: %w", err)
		}
		items = alt.Items
	}

	var wl watchlist
	weighted := true
	for _, it := range items {
		t := universe.NormalizeTicker(it.Sym)
		if t == "" {
			continue
		}
		wl.Tickers = append(wl.Tickers, t)
		if it.Weight == nil {
			weighted = false
			continue
		}
		wl.Weights = append(wl.Weights, *it.Weight)
	}
	if len(wl.Tickers) == 0 {
		return watchlist{}, errors.New("watchlist has no tickers")
	}
	if !weighted {
		wl.Weights = nil
	}
	return wl, nil
}

func loadWatchlist(path string) (watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return watchlist{}, fmt.Errorf("read watchlist %s: %w", path, err)
	}
	return parseWatchlist(data)
}

// portfolioInput resolves tickers from positional args, falling back to --watchlist
func (a *app) portfolioInput(args []string) (watchlist, error) {
	if len(args) > 0 {
		return watchlist{Tickers: args}, nil
	}
	if a.watchlist == "" {
		return watchlist{}, errors.New("no tickers: pass them as arguments or use --watchlist")
	}
	return loadWatchlist(a.watchlist)
}
