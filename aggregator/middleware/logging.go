package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/directory"
	"github.com/absmach/fedlearn/messages"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    aggregator.Service
}

func Logging(logger *slog.Logger, svc aggregator.Service) aggregator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) SubmitUpdate(ctx context.Context, sub messages.UpdateSubmission) (result aggregator.SubmitResult, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("submission",
				slog.String("participant_id", sub.ParticipantID),
				slog.Uint64("round_number", sub.RoundNumber),
				slog.Int("size", sub.Parameters.Size()),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit update failed", args...)

			return
		}
		args = append(args, slog.Bool("closed_round", result.ClosedRound))
		lm.logger.Info("Submit update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdate(ctx, sub)
}

func (lm *loggingMiddleware) GetGlobalModel(ctx context.Context) (global aggregator.GlobalModel, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("round_number", global.RoundNumber),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get global model failed", args...)

			return
		}
		lm.logger.Info("Get global model completed successfully", args...)
	}(time.Now())

	return lm.svc.GetGlobalModel(ctx)
}

func (lm *loggingMiddleware) GetParticipantView(ctx context.Context) (view []aggregator.ParticipantStatus, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("participants", len(view)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get participant view failed", args...)

			return
		}
		lm.logger.Info("Get participant view completed successfully", args...)
	}(time.Now())

	return lm.svc.GetParticipantView(ctx)
}

func (lm *loggingMiddleware) Register(ctx context.Context, reg messages.Registration) (lease directory.Lease, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("participant",
				slog.String("id", reg.ParticipantID),
				slog.String("address", reg.Address),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Register participant failed", args...)

			return
		}
		args = append(args, slog.String("lease_id", lease.ID))
		lm.logger.Info("Register participant completed successfully", args...)
	}(time.Now())

	return lm.svc.Register(ctx, reg)
}

func (lm *loggingMiddleware) RenewLease(ctx context.Context, leaseID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("lease_id", leaseID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Renew lease failed", args...)

			return
		}
		lm.logger.Info("Renew lease completed successfully", args...)
	}(time.Now())

	return lm.svc.RenewLease(ctx, leaseID)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (reply messages.StatusReply, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Status failed", args...)

			return
		}
		lm.logger.Info("Status completed successfully", args...)
	}(time.Now())

	return lm.svc.Status(ctx)
}
