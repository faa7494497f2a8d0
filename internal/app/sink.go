package app

import (
	"context"
	"errors"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// multiSink fans each scanner event out to every configured sink. One failing
// sink does not stop delivery to the others; all errors are joined and
// returned so the caller can log them.
type multiSink struct {
	sinks []domain.EventSink
}

// newMultiSink combines the non-nil sinks into a single domain.EventSink.
// With zero or one sinks it returns nil or the sink itself.
func newMultiSink(sinks ...domain.EventSink) domain.EventSink {
	var active []domain.EventSink
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return &multiSink{sinks: active}
}

func (m *multiSink) NewOpportunity(ctx context.Context, opp domain.Opportunity) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.NewOpportunity(ctx, opp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiSink) OpportunityExpired(ctx context.Context, id string) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.OpportunityExpired(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiSink) ScanComplete(ctx context.Context, marketsScanned, opportunitiesFound int) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.ScanComplete(ctx, marketsScanned, opportunitiesFound); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ domain.EventSink = (*multiSink)(nil)
