package metrics

import (
	"context"

	"github.com/shopspring/decimal"
)

// StorefrontRecorder receives collection and checkout measurements
type StorefrontRecorder interface {
	RecordMutation(ctx context.Context, collection, op, outcome string)
	RecordPersistenceFailure(ctx context.Context, collection, reason string)
	RecordPayloadDiscarded(ctx context.Context, collection, reason string)
	RecordCheckoutStarted(ctx context.Context)
	RecordCheckoutCompleted(ctx context.Context, total decimal.Decimal)
}

// Fanout forwards every measurement to each recorder, so the same events
// reach both the OTLP pipeline and the scrape endpoint.
type Fanout []StorefrontRecorder

// NewFanout drops nil recorders
func NewFanout(recorders ...StorefrontRecorder) Fanout {
	out := make(Fanout, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (f Fanout) RecordMutation(ctx context.Context, collection, op, outcome string) {
	for _, r := range f {
		r.RecordMutation(ctx, collection, op, outcome)
	}
}

func (f Fanout) RecordPersistenceFailure(ctx context.Context, collection, reason string) {
	for _, r := range f {
		r.RecordPersistenceFailure(ctx, collection, reason)
	}
}

func (f Fanout) RecordPayloadDiscarded(ctx context.Context, collection, reason string) {
	for _, r := range f {
		r.RecordPayloadDiscarded(ctx, collection, reason)
	}
}

func (f Fanout) RecordCheckoutStarted(ctx context.Context) {
	for _, r := range f {
		r.RecordCheckoutStarted(ctx)
	}
}

func (f Fanout) RecordCheckoutCompleted(ctx context.Context, total decimal.Decimal) {
	for _, r := range f {
		r.RecordCheckoutCompleted(ctx, total)
	}
}

var (
	_ StorefrontRecorder = (*Recorder)(nil)
	_ StorefrontRecorder = Fanout(nil)
)
