// Package cli implements the corrscope command-line tool: offline queries over a
// correlation feed file or URL without running the HTTP service.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/corrscope/internal/clients/feed"
	"github.com/aristath/corrscope/internal/modules/correlation"
	"github.com/aristath/corrscope/internal/modules/universe"
	"github.com/aristath/corrscope/pkg/logger"
)

type app struct {
	feed      string
	directory string
	limit     int
	noClamp   bool
	logLevel  string
	jsonOut   bool
	watchlist string
	timeout   time.Duration
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "corrscope",
		Short:         "Query company correlations and portfolio analytics from a feed",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.feed == "" {
				return fmt.Errorf("--feed is required")
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.feed, "feed", "", "correlation feed file path or http(s) URL")
	pf.StringVar(&a.directory, "directory", "", "company directory JSON file")
	pf.IntVar(&a.limit, "limit", 0, "keep only the N largest companies by market cap (0 keeps all)")
	pf.BoolVar(&a.noClamp, "no-clamp", false, "do not clamp correlations to [-1, 1]")
	pf.StringVar(&a.logLevel, "log-level", "error", "log level (debug, info, warn, error)")
	pf.BoolVar(&a.jsonOut, "json", false, "print JSON instead of a table")
	pf.StringVar(&a.watchlist, "watchlist", "", "YAML watchlist used by portfolio commands when no tickers are given")
	pf.DurationVar(&a.timeout, "timeout", 2*time.Minute, "feed load timeout")

	root.AddCommand(
		a.statsCommand(),
		a.companyCommand(),
		a.pairCommand(),
		a.lowPairsCommand(),
		a.similarCommand(),
		a.sectorsCommand(),
		a.clustersCommand(),
		a.riskCommand(),
		a.optimizeCommand(),
		a.frontierCommand(),
		a.diversifyCommand(),
	)
	return root
}

// load fetches the feed once and returns an engine holding the built snapshot
func (a *app) load(cmd *cobra.Command, seed *int64) (*correlation.Engine, error) {
	log := logger.New(logger.Config{
		Level:  a.logLevel,
		Pretty: true,
		Output: cmd.ErrOrStderr(),
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	cfg := correlation.DefaultEngineConfig()
	cfg.ClampCorrelations = !a.noClamp
	cfg.UniverseLimit = a.limit
	cfg.KMeansSeed = seed

	engine := correlation.NewEngine(
		a.fetcher(log),
		universe.NewDirectoryService(nil, a.directory, log),
		nil,
		cfg,
		log,
	)
	if _, err := engine.Initialize(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}

func (a *app) fetcher(log zerolog.Logger) correlation.Fetcher {
	if strings.HasPrefix(a.feed, "http://") || strings.HasPrefix(a.feed, "https://") {
		return feed.NewHTTPClient(a.feed, nil, 0, log)
	}
	return feed.NewFileClient(a.feed, log)
}
