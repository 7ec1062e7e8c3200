package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/render"
)

// #region methods
func newMethodsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List casting methods and whether each is usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			statuses := a.registry.Status(cmd.Context())
			return a.print(render.Methods(statuses, a.mode), statuses)
		},
	}
}

// #endregion methods

// #region history
func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled readings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("%w: --limit must not be negative", faults.ErrInvalidArgument)
			}
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireJournal(); err != nil {
				return err
			}

			rows, err := a.journal.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return a.print(render.History(rows, a.mode), rows)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum readings to list; 0 lists all")
	return cmd
}

// #endregion history

// #region show
func newShowCmd(opts *rootOptions) *cobra.Command {
	var (
		file    string
		entropy bool
	)
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a journaled or saved reading",
		Example: "  oracle show 3f0c2a8e-...\n" +
			"  oracle show 3f0c2a8e-... --entropy\n" +
			"  oracle show --file=reading.json",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (len(args) == 0) {
				return fmt.Errorf("%w: give a reading id or --file", faults.ErrInvalidArgument)
			}
			if file != "" && entropy {
				return fmt.Errorf("%w: --entropy needs a journaled reading", faults.ErrInvalidArgument)
			}
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if file != "" {
				reading, err := engine.LoadReading(file)
				if err != nil {
					return err
				}
				return a.print(render.Reading(reading), reading)
			}

			if err := a.requireJournal(); err != nil {
				return err
			}
			if entropy {
				entries, err := a.journal.Entropy(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.print(render.Entropy(entries, a.mode), entries)
			}
			reading, err := a.journal.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(render.Reading(reading), reading)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read a reading saved with cast --save")
	cmd.Flags().BoolVar(&entropy, "entropy", false, "show where each line's coins came from")
	return cmd
}

// #endregion show
