package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
	"github.com/danielpatrickdp/hexagram-oracle/internal/render"
	"github.com/danielpatrickdp/hexagram-oracle/internal/resolver"
)

// #region compare
func newCompareCmd(opts *rootOptions) *cobra.Command {
	var (
		sources []string
		field   string
	)
	cmd := &cobra.Command{
		Use:   "compare <number>",
		Short: "Show one hexagram side by side across sources",
		Long: "Resolve a hexagram from each source (canonical first, then the\n" +
			"sources metadata priority) and show one field or the judgment.\n" +
			"Fields: " + strings.Join(resolver.CompareFields, ", "),
		Example: "  oracle compare 1 --field=image\n  oracle compare 38 --sources=wilhelm,legge --field=line_3",
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

			rows, err := a.resolver.CompareSources(cmd.Context(), n, sources, field)
			if err != nil {
				return err
			}
			return a.print(render.Comparison(rows, a.mode), rows)
		},
	}
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "sources to compare (default: all, in priority order)")
	cmd.Flags().StringVar(&field, "field", "judgment", "field to compare; empty compares whole bundles")
	return cmd
}

// #endregion compare

// #region validate
type validateReport struct {
	Source   string                  `json:"source"`
	Problems []string                `json:"problems,omitempty"`
	Bundles  []resolver.Completeness `json:"bundles,omitempty"`
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [number]",
		Short: "Check interpretation data",
		Long: "Without --source, check that all 64 canonical bundles exist and are\n" +
			"complete. With --source, report which fields that source fills in,\n" +
			"for one hexagram or all of them.",
		Example: "  oracle validate\n  oracle validate --source=legge 1",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			source := a.source()
			if source == a.loader.Canonical() && len(args) == 0 {
				problems, err := a.loader.ValidateCanonical(ctx)
				if err != nil {
					return err
				}
				report := validateReport{Source: source}
				var b strings.Builder
				for _, p := range problems {
					report.Problems = append(report.Problems, p.Error())
					fmt.Fprintf(&b, "  %s\n", p.Error())
				}
				if len(problems) == 0 {
					fmt.Fprintf(&b, "all 64 %s bundles are complete\n", source)
				}
				if err := a.print(b.String(), report); err != nil {
					return err
				}
				if len(problems) > 0 {
					return fmt.Errorf("%w: %d of 64 %s bundles are unusable", faults.ErrData, len(problems), source)
				}
				return nil
			}

			numbers, err := validateNumbers(a.loader, args)
			if err != nil {
				return err
			}
			report := validateReport{Source: source}
			var b strings.Builder
			present, complete := 0, 0
			for _, n := range numbers {
				c, err := a.resolver.ValidateSourceCompleteness(ctx, n, source)
				if err != nil {
					return err
				}
				report.Bundles = append(report.Bundles, c)
				if c.Present {
					present++
				}
				if c.Complete() {
					complete++
				}
				if len(numbers) == 1 {
					b.WriteString(render.Completeness(c, a.mode))
				}
			}
			if len(numbers) > 1 {
				fmt.Fprintf(&b, "%s: %d of %d bundles present, %d complete\n", source, present, len(numbers), complete)
			}
			return a.print(b.String(), report)
		},
	}
}

func validateNumbers(l *loader.Loader, args []string) ([]int, error) {
	if len(args) == 1 {
		n, err := parseNumber(args[0])
		if err != nil {
			return nil, err
		}
		return []int{n}, nil
	}
	t, err := l.Table()
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, 64)
	for _, h := range t.Hexagrams() {
		out = append(out, h.Number)
	}
	return out, nil
}

// #endregion validate
