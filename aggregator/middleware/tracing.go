package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/directory"
	"github.com/absmach/fedlearn/messages"
)

var _ aggregator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    aggregator.Service
}

func Tracing(tracer trace.Tracer, svc aggregator.Service) aggregator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) SubmitUpdate(ctx context.Context, sub messages.UpdateSubmission) (aggregator.SubmitResult, error) {
	ctx, span := tm.tracer.Start(ctx, "submit-update", trace.WithAttributes(
		attribute.String("participant_id", sub.ParticipantID),
		attribute.Int64("round_number", int64(sub.RoundNumber)),
	))
	defer span.End()

	return tm.svc.SubmitUpdate(ctx, sub)
}

func (tm *tracing) GetGlobalModel(ctx context.Context) (aggregator.GlobalModel, error) {
	ctx, span := tm.tracer.Start(ctx, "get-global-model")
	defer span.End()

	return tm.svc.GetGlobalModel(ctx)
}

func (tm *tracing) GetParticipantView(ctx context.Context) ([]aggregator.ParticipantStatus, error) {
	ctx, span := tm.tracer.Start(ctx, "get-participant-view")
	defer span.End()

	return tm.svc.GetParticipantView(ctx)
}

func (tm *tracing) Register(ctx context.Context, reg messages.Registration) (directory.Lease, error) {
	ctx, span := tm.tracer.Start(ctx, "register", trace.WithAttributes(
		attribute.String("participant_id", reg.ParticipantID),
		attribute.String("address", reg.Address),
	))
	defer span.End()

	return tm.svc.Register(ctx, reg)
}

func (tm *tracing) RenewLease(ctx context.Context, leaseID string) error {
	ctx, span := tm.tracer.Start(ctx, "renew-lease", trace.WithAttributes(
		attribute.String("lease_id", leaseID),
	))
	defer span.End()

	return tm.svc.RenewLease(ctx, leaseID)
}

func (tm *tracing) Status(ctx context.Context) (messages.StatusReply, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}
