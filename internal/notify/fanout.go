package notify

import (
	"context"
	"errors"
)

type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout delivers every event to all sinks and joins their errors.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
