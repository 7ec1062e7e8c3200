package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/config"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/journal"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
	"github.com/danielpatrickdp/hexagram-oracle/internal/logging"
	"github.com/danielpatrickdp/hexagram-oracle/internal/metrics"
	"github.com/danielpatrickdp/hexagram-oracle/internal/render"
	"github.com/danielpatrickdp/hexagram-oracle/internal/resolver"
)

var errNoJournal = fmt.Errorf("%w: no reading journal; set ORACLE_DB or --db", faults.ErrUnavailable)

// #region app
// app is everything one command run needs, built from config and flags.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	loader   *loader.Loader
	resolver *resolver.Resolver
	registry *casting.Registry
	engine   *engine.Engine
	journal  *journal.Store
	metrics  *metrics.Collector
	mode     render.Mode
	json     bool
	out      io.Writer
}

// open loads settings, applies flag overrides and wires the oracle. With
// withMetrics the engine also feeds a Prometheus collector.
func (o *rootOptions) open(cmd *cobra.Command, withMetrics bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"data-dir":  &cfg.DataDir,
		"source":    &cfg.Source,
		"method":    &cfg.Method,
		"db":        &cfg.DBPath,
		"log-level": &cfg.LogLevel,
	} {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			*dst = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := render.ParseMode(o.format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", faults.ErrInvalidArgument, err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	l, err := loader.New(cfg.LoaderOptions(log))
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		loader:   l,
		resolver: resolver.New(l, log),
		registry: casting.NewRegistry(cfg.CastingOptions(log)),
		mode:     mode,
		json:     o.json,
		out:      cmd.OutOrStdout(),
	}

	engOpts := []engine.Option{engine.WithLogger(log)}
	if withMetrics {
		a.metrics = metrics.New(metrics.DefaultNamespace)
		engOpts = append(engOpts, engine.WithObserver(a.metrics))
	}
	if cfg.DBPath != "" {
		a.journal, err = journal.NewStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		engOpts = append(engOpts, engine.WithObserver(journal.NewRecorder(a.journal, log)))
	}
	a.engine = engine.New(a.registry, a.resolver, engOpts...)
	return a, nil
}

func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn("close journal", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

func (a *app) requireJournal() error {
	if a.journal == nil {
		return errNoJournal
	}
	return nil
}

// print writes text, or v as indented JSON when --json is set.
func (a *app) print(text string, v any) error {
	if a.json {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		return nil
	}
	_, err := io.WriteString(a.out, text)
	return err
}

// source returns the configured display source, defaulting to canonical.
func (a *app) source() string {
	if a.cfg.Source != "" {
		return a.cfg.Source
	}
	return a.loader.Canonical()
}

// #endregion app
