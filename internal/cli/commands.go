package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aristath/corrscope/internal/modules/correlation"
	"github.com/aristath/corrscope/pkg/formulas"
)

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the correlation snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			st := engine.Statistics()
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, st)
			}

			tw := newTable(out, "metric", "value")
			tw.AppendRow([]interface{}{"snapshot", st.SnapshotID})
			tw.AppendRow([]interface{}{"companies", st.Companies})
			tw.AppendRow([]interface{}{"pairs", st.Pairs})
			tw.AppendRow([]interface{}{"mean", num(st.Mean)})
			if st.Min != nil {
				tw.AppendRow([]interface{}{"min", fmt.Sprintf("%s/%s %s", st.Min.Ticker1, st.Min.Ticker2, num(st.Min.Correlation))})
			}
			if st.Max != nil {
				tw.AppendRow([]interface{}{"max", fmt.Sprintf("%s/%s %s", st.Max.Ticker1, st.Max.Ticker2, num(st.Max.Correlation))})
			}
			for _, b := range correlation.Buckets() {
				tw.AppendRow([]interface{}{"bucket " + b.String(), st.BucketCounts[b.String()]})
			}
			tw.Render()
			return nil
		},
	}
}

func (a *app) companyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "company <ticker>",
		Short: "Show a company with its most and least correlated peers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			cc := engine.CompanyCorrelation(args[0])
			if cc == nil {
				return fmt.Errorf("company not found: %s", args[0])
			}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, cc)
			}

			title(out, fmt.Sprintf("%s  %s  (%s)", cc.Record.Ticker, cc.Record.DisplayName(), cc.Record.Sector))
			tw := newTable(out, "peer", "name", "correlation", "side")
			alignNumeric(tw, 3)
			for _, p := range cc.PositivePeers {
				tw.AppendRow([]interface{}{p.Ticker, p.Name, num(p.Correlation), "positive"})
			}
			for _, p := range cc.NegativePeers {
				tw.AppendRow([]interface{}{p.Ticker, p.Name, num(p.Correlation), "negative"})
			}
			tw.Render()
			return nil
		},
	}
}

func (a *app) pairCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pair <ticker1> <ticker2>",
		Short: "Look up the correlation of two companies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			pc := engine.PairwiseCorrelation(args[0], args[1])
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, pc)
			}

			tw := newTable(out, "ticker1", "ticker2", "correlation", "interpretation")
			alignNumeric(tw, 3)
			tw.AppendRow([]interface{}{pc.Ticker1, pc.Ticker2, num(pc.Correlation), pc.Interpretation})
			tw.Render()
			return nil
		},
	}
}

func (a *app) lowPairsCommand() *cobra.Command {
	var min, max float64
	var top int

	cmd := &cobra.Command{
		Use:   "low-pairs",
		Short: "List pairs whose correlation falls within a range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			pairs := engine.FindLowCorrelationPairs(min, max)
			if top > 0 && len(pairs) > top {
				pairs = pairs[:top]
			}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, pairs)
			}

			tw := newTable(out, "ticker1", "sector1", "ticker2", "sector2", "correlation")
			alignNumeric(tw, 5)
			for _, p := range pairs {
				tw.AppendRow([]interface{}{p.Ticker1, p.Sector1, p.Ticker2, p.Sector2, num(p.Correlation)})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().Float64Var(&min, "min", -0.1, "lower correlation bound")
	cmd.Flags().Float64Var(&max, "max", 0.1, "upper correlation bound")
	cmd.Flags().IntVar(&top, "top", 20, "maximum pairs to print (0 prints all)")
	return cmd
}

func (a *app) similarCommand() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "similar <ticker>",
		Short: "Rank companies by feature similarity to a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			similar := engine.FindSimilarStocks(args[0], top)
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, similar)
			}

			tw := newTable(out, "ticker", "name", "sector", "similarity", "correlation")
			alignNumeric(tw, 4, 5)
			for _, s := range similar {
				tw.AppendRow([]interface{}{s.Ticker, s.Name, s.Sector, num(s.Similarity), num(s.Correlation)})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of companies to return")
	return cmd
}

func (a *app) sectorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sectors",
		Short: "Average correlation within and between sectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			sectors := engine.SectorCorrelation()
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, sectors)
			}

			tw := newTable(out, "sector1", "sector2", "average", "pairs")
			alignNumeric(tw, 3, 4)
			for _, s := range sectors {
				tw.AppendRow([]interface{}{s.Sector1, s.Sector2, num(s.AverageCorrelation), s.Pairs})
			}
			tw.Render()
			return nil
		},
	}
}

func (a *app) clustersCommand() *cobra.Command {
	var k int
	var seed int64

	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Group companies with k-means over their correlation features",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var seedPtr *int64
			if cmd.Flags().Changed("seed") {
				seedPtr = &seed
			}
			engine, err := a.load(cmd, seedPtr)
			if err != nil {
				return err
			}
			res, err := engine.ClusterByCorrelation(correlation.KMeansOptions{K: k})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, res)
			}

			tw := newTable(out, "cluster", "size", "members")
			alignNumeric(tw, 1, 2)
			for i, members := range res.Clusters {
				sorted := append([]string(nil), members...)
				sort.Strings(sorted)
				tw.AppendRow([]interface{}{i, len(sorted), strings.Join(sorted, " ")})
			}
			tw.Render()
			fmt.Fprintf(out, "converged after %d iterations\n", res.Iterations)
			return nil
		},
	}
	cmd.Flags().IntVar(&k, "k", 5, "number of clusters")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for reproducible clustering")
	return cmd
}

func (a *app) riskCommand() *cobra.Command {
	var weights []float64

	cmd := &cobra.Command{
		Use:   "risk [ticker...]",
		Short: "Evaluate a weighted portfolio under the unit-volatility risk model",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.portfolioInput(args)
			if err != nil {
				return err
			}
			switch {
			case len(weights) > 0:
				in.Weights = weights
			case in.Weights == nil:
				in.Weights = formulas.EqualWeights(len(in.Tickers))
			}
			engine, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			res, err := engine.PortfolioRisk(in.Tickers, in.Weights)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, res)
			}

			tw := newTable(out, "variance", "risk", "diversification ratio")
			alignNumeric(tw, 1, 2, 3)
			tw.AppendRow([]interface{}{num(res.Variance), num(res.Risk), num(res.DiversificationRatio)})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().Float64SliceVar(&weights, "weights", nil, "comma-separated weights in ticker order (default equal)")
	return cmd
}

func (a *app) optimizeCommand() *cobra.Command {
	var tolerance string

	cmd := &cobra.Command{
		Use:   "optimize [ticker...]",
		Short: "Weight tickers for a risk tolerance",
		RunE: func(cmd *cobra.Command, args []string) error {
			tol, err := correlation.ParseRiskTolerance(tolerance)
			if err != nil {
				return err
			}
			in, err := a.portfolioInput(args)
			if err != nil {
				return err
			}
			engine, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			res, err := engine.OptimizePortfolio(in.Tickers, tol)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, res)
			}

			tw := newTable(out, "ticker", "weight")
			alignNumeric(tw, 2)
			for i, t := range res.Tickers {
				tw.AppendRow([]interface{}{t, pct(res.Weights[i])})
			}
			tw.AppendFooter([]interface{}{string(res.RiskTolerance), "risk " + num(res.Stats.Risk)})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&tolerance, "tolerance", string(correlation.Moderate), "conservative, moderate or aggressive")
	return cmd
}

func (a *app) frontierCommand() *cobra.Command {
	var points int

	cmd := &cobra.Command{
		Use:   "frontier [ticker...]",
		Short: "Sample the efficient frontier across risk levels",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.portfolioInput(args)
			if err != nil {
				return err
			}
			engine, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			frontier, err := engine.EfficientFrontier(in.Tickers, points)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, frontier)
			}

			tw := newTable(out, "level", "tolerance", "risk", "return", "sharpe")
			alignNumeric(tw, 1, 3, 4, 5)
			for _, p := range frontier {
				tw.AppendRow([]interface{}{
					strconv.FormatFloat(p.RiskLevel, 'f', 2, 64),
					string(p.RiskTolerance),
					num(p.Risk),
					num(p.ExpectedReturn),
					num(p.SharpeRatio),
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&points, "points", 10, "number of frontier points")
	return cmd
}

func (a *app) diversifyCommand() *cobra.Command {
	var target int

	cmd := &cobra.Command{
		Use:   "diversify [ticker...]",
		Short: "Greedily pick the least correlated subset of tickers",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.portfolioInput(args)
			if err != nil {
				return err
			}
			engine, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			p := engine.BuildDiversifiedPortfolio(in.Tickers, target)
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, p)
			}

			tw := newTable(out, "ticker", "weight")
			alignNumeric(tw, 2)
			for i, t := range p.Tickers {
				tw.AppendRow([]interface{}{t, pct(p.Weights[i])})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&target, "target", 5, "number of tickers to keep")
	return cmd
}
