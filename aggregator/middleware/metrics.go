package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/directory"
	"github.com/absmach/fedlearn/messages"
)

var _ aggregator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     aggregator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc aggregator.Service) aggregator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) SubmitUpdate(ctx context.Context, sub messages.UpdateSubmission) (aggregator.SubmitResult, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-update").Add(1)
		mm.latency.With("method", "submit-update").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitUpdate(ctx, sub)
}

func (mm *metricsMiddleware) GetGlobalModel(ctx context.Context) (aggregator.GlobalModel, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-global-model").Add(1)
		mm.latency.With("method", "get-global-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetGlobalModel(ctx)
}

func (mm *metricsMiddleware) GetParticipantView(ctx context.Context) ([]aggregator.ParticipantStatus, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-participant-view").Add(1)
		mm.latency.With("method", "get-participant-view").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetParticipantView(ctx)
}

func (mm *metricsMiddleware) Register(ctx context.Context, reg messages.Registration) (directory.Lease, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "register").Add(1)
		mm.latency.With("method", "register").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Register(ctx, reg)
}

func (mm *metricsMiddleware) RenewLease(ctx context.Context, leaseID string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "renew-lease").Add(1)
		mm.latency.With("method", "renew-lease").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RenewLease(ctx, leaseID)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (messages.StatusReply, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}
