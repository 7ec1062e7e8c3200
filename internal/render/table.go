// Package render formats readings, hexagrams and listings for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/journal"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
	"github.com/danielpatrickdp/hexagram-oracle/internal/resolver"
)

// Mode controls table output.
type Mode int

const (
	ASCII    Mode = iota // fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// ParseMode maps "table"/"ascii" and "markdown"/"md" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "ascii":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return ASCII, fmt.Errorf("unknown table format %q", s)
}

// #region builder
func newTable(mode Mode, header ...any) table.Writer {
	w := table.NewWriter()
	if mode == ASCII {
		w.SetStyle(table.StyleLight)
	}
	w.Style().Format.Footer = text.FormatDefault
	w.AppendHeader(table.Row(header))
	return w
}

func finish(w table.Writer, mode Mode) string {
	if mode == Markdown {
		return w.RenderMarkdown() + "\n"
	}
	return w.Render() + "\n"
}

// #endregion builder

// #region tables
// Methods lists casting methods and whether each can be used now.
func Methods(statuses []casting.Status, mode Mode) string {
	w := newTable(mode, "Method", "Source", "External", "Available", "Reason")
	for _, s := range statuses {
		w.AppendRow(table.Row{s.Method, s.Description, yesNo(s.External), yesNo(s.Available), s.Reason})
	}
	return finish(w, mode)
}

// Hexagrams lists reference entries.
func Hexagrams(hexes []reference.Hexagram, mode Mode) string {
	w := newTable(mode, "#", "", "Binary", "Upper", "Lower", "Pinyin", "English")
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	for _, h := range hexes {
		w.AppendRow(table.Row{h.Number, h.Symbol(), h.Binary, h.Upper, h.Lower, h.Names.Pinyin, h.Names.English})
	}
	return finish(w, mode)
}

// History lists journal summaries, newest first.
func History(rows []journal.Summary, mode Mode) string {
	w := newTable(mode, "ID", "Cast", "Method", "Lines", "Primary", "Relating", "Source", "Question")
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 8, WidthMax: 40}})
	for _, s := range rows {
		relating := "-"
		if s.Relating != 0 {
			relating = fmt.Sprint(s.Relating)
		}
		source := s.SourceUsed
		if s.Source != s.SourceUsed {
			source = fmt.Sprintf("%s (asked %s)", s.SourceUsed, s.Source)
		}
		w.AppendRow(table.Row{
			shortID(s.ID), s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Method,
			s.Lines.String(), s.Primary, relating, source, s.Question,
		})
	}
	w.AppendFooter(table.Row{"", "", "", "", "", "", "total", len(rows)})
	return finish(w, mode)
}

// Entropy lists the coin tosses behind each line of a reading.
func Entropy(entries []journal.EntropyEntry, mode Mode) string {
	w := newTable(mode, "Line", "Method", "Coins", "Value")
	for _, e := range entries {
		w.AppendRow(table.Row{e.Position, e.Method, fmt.Sprintf("%d %d %d", e.Coins[0], e.Coins[1], e.Coins[2]), e.Value})
	}
	return finish(w, mode)
}

// Comparison shows one field across sources. Whole-bundle comparisons show
// the judgment.
func Comparison(rows []resolver.Comparison, mode Mode) string {
	w := newTable(mode, "Source", "Used", "Text")
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 72}})
	for _, c := range rows {
		used := c.Used
		if c.FellBack {
			used += " (fallback)"
		}
		w.AppendRow(table.Row{c.Source, used, comparisonText(c)})
	}
	return finish(w, mode)
}

func comparisonText(c resolver.Comparison) string {
	switch {
	case c.Bundle != nil:
		return c.Bundle.Judgment
	case len(c.Lines) > 0:
		parts := make([]string, 0, len(c.Lines))
		for i, l := range c.Lines {
			parts = append(parts, fmt.Sprintf("%d: %s", i+1, l.Text))
		}
		return strings.Join(parts, "\n")
	}
	return c.Value
}

// Completeness shows which fields a source supplies for one hexagram.
func Completeness(c resolver.Completeness, mode Mode) string {
	w := newTable(mode, "Field", "Present")
	for _, f := range resolver.Fields {
		w.AppendRow(table.Row{f, yesNo(c.Fields[f])})
	}
	status := "complete"
	if !c.Present {
		status = "no file"
	} else if !c.Complete() {
		status = "partial"
	}
	w.AppendFooter(table.Row{fmt.Sprintf("%s #%d", c.Source, c.Number), status})
	return finish(w, mode)
}

// #endregion tables

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
