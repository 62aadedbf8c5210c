package history

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Recorder writes a settled swap to the store and then announces it. Either
// side may be nil.
type Recorder struct {
	store  Store
	pub    Publisher
	logger *logrus.Logger
}

func NewRecorder(store Store, pub Publisher, logger *logrus.Logger) *Recorder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Recorder{store: store, pub: pub, logger: logger}
}

func (r *Recorder) RecordSwap(ctx context.Context, rec *SwapRecord) error {
	var errs []error
	if r.store != nil {
		if err := r.store.InsertSwap(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if r.pub != nil {
		if err := r.pub.PublishSwap(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}

	r.logger.WithFields(logrus.Fields{
		"id":        rec.ID,
		"signature": rec.Signature,
		"pair":      rec.Pair,
	}).Debug("swap recorded")
	return errors.Join(errs...)
}

// Recent reads history from the store, or nothing without one.
func (r *Recorder) Recent(ctx context.Context, taker string, limit int) ([]*SwapRecord, error) {
	if r.store == nil {
		return nil, nil
	}
	return r.store.RecentSwaps(ctx, taker, limit)
}
