package journal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/logging"
)

const recordTimeout = 5 * time.Second

// #region recorder
// Recorder journals every reading and failed cast the engine reports.
// Storage errors are logged, never returned to the caster.
type Recorder struct {
	store *Store
	log   *zap.Logger
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder returns an engine observer that writes to store.
func NewRecorder(store *Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, log: logging.Component(logger, "journal")}
}

// ObserveReading saves r.
func (rec *Recorder) ObserveReading(r *engine.Reading) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := rec.store.Save(ctx, r); err != nil {
		rec.log.Error("save reading", zap.String("id", r.ID), zap.Error(err))
		return
	}
	rec.log.Debug("reading saved", zap.String("id", r.ID))
}

// ObserveFailure logs the failure with its error class.
func (rec *Recorder) ObserveFailure(method casting.Method, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	f := Failure{Method: method, Class: faults.Class(err), Reason: err.Error()}
	if logErr := rec.store.LogFailure(ctx, f); logErr != nil {
		rec.log.Error("log failure", zap.String("method", string(method)), zap.Error(logErr))
	}
}

// #endregion recorder
