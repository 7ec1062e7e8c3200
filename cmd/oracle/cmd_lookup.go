package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
	"github.com/danielpatrickdp/hexagram-oracle/internal/render"
	"github.com/danielpatrickdp/hexagram-oracle/internal/resolver"
)

// #region lookup
type lookupResult struct {
	Hexagram reference.Hexagram `json:"hexagram"`
	Symbol   string             `json:"symbol"`
	Bundle   loader.Bundle      `json:"bundle"`
	Used     string             `json:"used"`
	FellBack bool               `json:"fell_back"`
	Lines    reference.Lines    `json:"lines,omitempty"`
	Relating *lookupRelating    `json:"relating,omitempty"`
}

type lookupRelating struct {
	Hexagram reference.Hexagram `json:"hexagram"`
	Bundle   loader.Bundle      `json:"bundle"`
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup [number|binary|lines|name]",
		Short: "Find a hexagram, or list all 64",
		Long: "Find a hexagram by number (1-64), binary pattern (six 0/1 digits,\n" +
			"bottom first), line values (six digits 6-9, bottom first) or name.\n" +
			"Line values with moving lines also show the hexagram they become.",
		Example: "  oracle lookup 38\n  oracle lookup 110101\n  oracle lookup 798767\n  oracle lookup qian",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 {
				t, err := a.loader.Table()
				if err != nil {
					return err
				}
				return a.print(render.Hexagrams(t.Hexagrams(), a.mode), t.Hexagrams())
			}

			q := loader.ParseQuery(strings.Join(args, " "))
			if q.Lines != "" {
				lines, err := reference.ParseLines(q.Lines)
				if err != nil {
					return err
				}
				if lines.HasMoving() {
					primary, relating, err := a.engine.Build(cmd.Context(), lines, a.cfg.Source)
					if err != nil {
						return err
					}
					text := strings.Join(render.Figure(lines), "\n") + "\n\n" +
						render.Bundle(primary.Hexagram, primary.Bundle) +
						"\nBecoming\n\n" + render.Bundle(relating.Hexagram, relating.Bundle)
					return a.print(text, lookupResult{
						Hexagram: primary.Hexagram,
						Symbol:   primary.Hexagram.Symbol(),
						Bundle:   primary.Bundle,
						Used:     primary.Bundle.Source,
						FellBack: primary.Bundle.Source != a.source(),
						Lines:    lines,
						Relating: &lookupRelating{Hexagram: relating.Hexagram, Bundle: relating.Bundle},
					})
				}
			}

			rec, err := a.loader.Find(cmd.Context(), q)
			if err != nil {
				return err
			}
			res := a.resolver.ResolveSet(rec.Set, a.cfg.Source)
			return a.print(render.Bundle(rec.Hexagram, res.Bundle)+fallbackNote(res), lookupResult{
				Hexagram: rec.Hexagram,
				Symbol:   rec.Hexagram.Symbol(),
				Bundle:   res.Bundle,
				Used:     res.Used,
				FellBack: res.FellBack(),
			})
		},
	}
}

// #endregion lookup

// #region resolve
func newResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "resolve <number>",
		Short:   "Show a hexagram's text from one source, filled in from canonical",
		Example: "  oracle resolve 1 --source=legge",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.resolver.Resolve(cmd.Context(), n, a.cfg.Source)
			if err != nil {
				return err
			}
			t, err := a.loader.Table()
			if err != nil {
				return err
			}
			hex, err := t.ByNumber(n)
			if err != nil {
				return err
			}
			return a.print(render.Bundle(hex, res.Bundle)+fallbackNote(res), res)
		},
	}
}

func fallbackNote(res resolver.Resolution) string {
	if !res.FellBack() {
		return ""
	}
	return fmt.Sprintf("\n(%s has no text for this hexagram; showing %s)\n", res.Requested, res.Used)
}

func parseNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: hexagram number %q", faults.ErrInvalidArgument, s)
	}
	return n, nil
}

// #endregion resolve
