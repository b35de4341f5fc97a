package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// newTable returns a borderless writer mirroring to w
func newTable(w io.Writer, header ...string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateRows = false

	hdr := make(table.Row, len(header))
	for i, h := range header {
		hdr[i] = strings.ToUpper(h)
	}
	tw.AppendHeader(hdr)
	return tw
}

// alignNumeric right-aligns the given 1-based columns
func alignNumeric(tw table.Writer, columns ...int) {
	cfgs := make([]table.ColumnConfig, 0, len(columns))
	for _, n := range columns {
		cfgs = append(cfgs, table.ColumnConfig{
			Number:      n,
			Align:       text.AlignRight,
			AlignHeader: text.AlignRight,
		})
	}
	tw.SetColumnConfigs(cfgs)
}

func num(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func title(w io.Writer, s string) {
	fmt.Fprintln(w, text.Bold.Sprint(s))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
