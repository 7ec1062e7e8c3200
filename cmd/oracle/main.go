// oracle casts I Ching readings and serves hexagram interpretations.
//
// Usage:
//
//	oracle cast [question] [--method=fire] [--seed=s] [--source=wilhelm] [--fallback]
//	oracle lookup <number|binary|lines|name>
//	oracle resolve <number> [--source=s]
//	oracle compare <number> [--sources=a,b] [--field=judgment]
//	oracle validate [--source=s] [number]
//	oracle methods
//	oracle history [--limit=20]
//	oracle show <id> [--entropy] | --file=<reading.json>
//	oracle serve
//
// Settings come from ORACLE_* environment variables; flags override them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// #region root
type rootOptions struct {
	dataDir  string
	source   string
	method   string
	db       string
	logLevel string
	format   string
	json     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "oracle",
		Short: "Cast I Ching readings and read hexagram interpretations",
		Long: "oracle casts hexagrams with a choice of entropy sources, resolves\n" +
			"interpretation text from several translations, and keeps a journal\n" +
			"of past readings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.dataDir, "data-dir", "", "interpretation data root (ORACLE_DATA_DIR)")
	pf.StringVar(&opts.source, "source", "", "interpretation source to display (ORACLE_SOURCE)")
	pf.StringVar(&opts.method, "method", "", "casting method (ORACLE_METHOD)")
	pf.StringVar(&opts.db, "db", "", "reading journal database (ORACLE_DB)")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (ORACLE_LOG_LEVEL)")
	pf.StringVar(&opts.format, "format", "table", "table output: table or markdown")
	pf.BoolVar(&opts.json, "json", false, "print JSON instead of text")

	root.AddCommand(
		newCastCmd(opts),
		newLookupCmd(opts),
		newResolveCmd(opts),
		newCompareCmd(opts),
		newValidateCmd(opts),
		newMethodsCmd(opts),
		newHistoryCmd(opts),
		newShowCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// #endregion root

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
