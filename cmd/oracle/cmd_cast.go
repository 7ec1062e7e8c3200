package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/render"
)

// #region cast
func newCastCmd(opts *rootOptions) *cobra.Command {
	var (
		seed     string
		save     string
		fallback bool
	)
	cmd := &cobra.Command{
		Use:   "cast [question]",
		Short: "Cast a reading",
		Long: "Cast six lines with the chosen method and show the primary hexagram,\n" +
			"its moving lines and the hexagram it becomes.",
		Example: "  oracle cast \"Should I take the job?\" --method=metal --source=wilhelm\n" +
			"  oracle cast --method=earth --seed=\"same question\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			req := engine.Request{
				Method:   a.cfg.DefaultMethod(),
				Question: strings.Join(args, " "),
				Source:   a.cfg.Source,
				Seed:     seed,
			}
			var (
				reading *engine.Reading
				failed  []casting.Method
			)
			if fallback {
				reading, failed, err = a.engine.CastReadingWithFallback(cmd.Context(), req)
			} else {
				reading, err = a.engine.CastReading(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			for _, m := range failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s was unavailable; cast with %s instead\n", m, reading.Method)
			}

			if save != "" {
				if err := engine.SaveReading(save, reading); err != nil {
					return err
				}
			}
			if a.json {
				return engine.Encode(a.out, reading)
			}
			text := render.Reading(reading)
			if a.journal != nil {
				text += fmt.Sprintf("\nSaved as %s\n", reading.ID)
			}
			return a.print(text, nil)
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "seed for the earth method")
	cmd.Flags().StringVar(&save, "save", "", "also write the reading as JSON to this file")
	cmd.Flags().BoolVar(&fallback, "fallback", false, "substitute another method when the chosen one is unavailable")
	return cmd
}

// #endregion cast
