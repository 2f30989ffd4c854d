package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/absmach/fedlearn/messages"
	"github.com/absmach/fedlearn/model"
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

const (
	registerRetries    = 5
	registerDelay      = 2 * time.Second
	pollInterval       = 5 * time.Second
	announcementBuffer = 4
)

type service struct {
	id      string
	address string

	mu      sync.Mutex
	trainer model.Trainer
	data    model.Sample
	round   uint64
	global  model.Parameters
	state   string

	leaseID  string
	leaseTTL time.Duration

	client        CoordinatorClient
	announcements chan messages.GlobalModelAnnouncement
	retrain       chan struct{}
	logger        *slog.Logger
}

// NewService builds an agent with the given local dataset. address is the
// externally reachable base URL other nodes use to push announcements.
func NewService(id, address string, trainer model.Trainer, data model.Sample, leaseTTL time.Duration, client CoordinatorClient, logger *slog.Logger) Service {
	return &service{
		id:            id,
		address:       address,
		trainer:       trainer,
		data:          data,
		leaseTTL:      leaseTTL,
		state:         "idle",
		client:        client,
		announcements: make(chan messages.GlobalModelAnnouncement, announcementBuffer),
		retrain:       make(chan struct{}, 1),
		logger:        logger,
	}
}

func (svc *service) Run(ctx context.Context) error {
	if err := svc.register(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.renewalLoop(ctx)
	})
	g.Go(func() error {
		return svc.roundLoop(ctx)
	})

	return g.Wait()
}

func (svc *service) register(ctx context.Context) error {
	reg := messages.Registration{
		ParticipantID: svc.id,
		Address:       svc.address,
		TTL:           svc.leaseTTL,
	}

	delay := registerDelay
	var lastErr error
	for attempt := 0; attempt < registerRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * 1.5)
		}

		lease, err := svc.client.Register(reg)
		if err != nil {
			lastErr = err
			svc.logger.Warn("Registration attempt failed",
				slog.Int("attempt", attempt+1),
				slog.Any("error", err))

			continue
		}

		svc.mu.Lock()
		svc.leaseID = lease.ID
		svc.mu.Unlock()
		svc.logger.Info("Registered with aggregator",
			slog.String("participant_id", svc.id),
			slog.String("lease_id", lease.ID))

		return nil
	}

	return fmt.Errorf("registration failed after %d attempts: %w", registerRetries, lastErr)
}

func (svc *service) renewalLoop(ctx context.Context) error {
	interval := svc.leaseTTL / 3
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			svc.mu.Lock()
			leaseID := svc.leaseID
			svc.mu.Unlock()

			err := svc.client.Renew(leaseID)
			switch {
			case err == nil:
			case errors.Is(err, pkgerrors.ErrLeaseExpired), errors.Is(err, pkgerrors.ErrNotFound):
				// The aggregator forgot us, likely after a sweep or restart.
				// Re-register to obtain a fresh lease.
				svc.logger.Warn("Lease gone, re-registering", slog.String("lease_id", leaseID))
				if regErr := svc.register(ctx); regErr != nil {
					return regErr
				}
			default:
				svc.logger.Warn("Lease renewal failed", slog.Any("error", err))
			}
		}
	}
}

// roundLoop drives one train-submit-wait cycle per round. A stale rejection
// means the round closed while we were training, so the loop resyncs and
// trains again against the newer global model.
func (svc *service) roundLoop(ctx context.Context) error {
	if err := svc.sync(); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		update, round, err := svc.train()
		if err != nil {
			return err
		}

		result, err := svc.client.SubmitUpdate(messages.UpdateSubmission{
			ParticipantID: svc.id,
			RoundNumber:   round,
			Parameters:    update,
		})
		switch {
		case err == nil:
			svc.logger.Info("Update accepted",
				slog.Uint64("round", result.RoundNumber),
				slog.Int("received", result.Received),
				slog.Int("expected", result.Expected),
				slog.Bool("closed_round", result.ClosedRound))
			if err := svc.awaitNextRound(ctx, round); err != nil {
				return err
			}
		case errors.Is(err, pkgerrors.ErrStaleRound), errors.Is(err, pkgerrors.ErrFutureRound):
			svc.logger.Info("Round moved on, resyncing", slog.Uint64("submitted_round", round))
			if err := svc.sync(); err != nil {
				return err
			}
		case errors.Is(err, pkgerrors.ErrDuplicateSubmission):
			// Our earlier submission landed, a retry raced it. Wait for
			// closure like an accepted submitter.
			if err := svc.awaitNextRound(ctx, round); err != nil {
				return err
			}
		default:
			svc.logger.Warn("Submission failed, retrying after resync", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
			if err := svc.sync(); err != nil {
				svc.logger.Warn("Resync failed", slog.Any("error", err))
			}
		}
	}
}

// awaitNextRound blocks until the global model advances past round, via a
// pushed announcement or the polling fallback. Newly supplied training data
// cuts the wait short so the loop retrains and submits right away.
func (svc *service) awaitNextRound(ctx context.Context, round uint64) error {
	svc.setState(fmt.Sprintf("waiting for round %d to close", round))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-svc.retrain:
			svc.logger.Info("New training data, retraining", slog.Uint64("round", round))

			return nil
		case ann := <-svc.announcements:
			if ann.RoundNumber > round {
				svc.apply(ann.RoundNumber, ann.Parameters)

				return nil
			}
		case <-ticker.C:
			global, err := svc.client.GetGlobalModel()
			if err != nil {
				svc.logger.Warn("Polling global model failed", slog.Any("error", err))

				continue
			}
			if global.RoundNumber > round {
				svc.apply(global.RoundNumber, global.Parameters)

				return nil
			}
		}
	}
}

func (svc *service) sync() error {
	global, err := svc.client.GetGlobalModel()
	if err != nil {
		return err
	}
	svc.apply(global.RoundNumber, global.Parameters)

	return nil
}

func (svc *service) apply(round uint64, params model.Parameters) {
	svc.mu.Lock()
	svc.round = round
	svc.global = params.Clone()
	svc.mu.Unlock()
	svc.logger.Info("Synced global model", slog.Uint64("round", round))
}

func (svc *service) train() (model.Parameters, uint64, error) {
	svc.mu.Lock()
	round := svc.round
	global := svc.global.Clone()
	data := svc.data
	svc.mu.Unlock()

	svc.setState(fmt.Sprintf("training for round %d", round))

	update, err := svc.trainer.Train(global, data)
	if err != nil {
		return model.Parameters{}, 0, err
	}

	return update, round, nil
}

func (svc *service) HandleAnnouncement(_ context.Context, ann messages.GlobalModelAnnouncement) error {
	if err := ann.Validate(); err != nil {
		return err
	}

	select {
	case svc.announcements <- ann:
	default:
		// Drop when full: the polling fallback catches up.
		svc.logger.Warn("Announcement buffer full, dropping",
			slog.Uint64("round", ann.RoundNumber))
	}

	return nil
}

func (svc *service) AddTrainingData(_ context.Context, req messages.TrainRequest) error {
	sample := model.Sample{Data: req.Data, Labels: req.Labels}
	if err := sample.Validate(model.InputSize); err != nil {
		return err
	}

	svc.mu.Lock()
	svc.data.Data = append(svc.data.Data, req.Data...)
	svc.data.Labels = append(svc.data.Labels, req.Labels...)
	svc.mu.Unlock()

	select {
	case svc.retrain <- struct{}{}:
	default:
	}

	svc.logger.Info("Training data added", slog.Int("samples", len(req.Labels)))

	return nil
}

func (svc *service) Predict(_ context.Context, req messages.PredictRequest) ([]float64, error) {
	svc.mu.Lock()
	global := svc.global.Clone()
	svc.mu.Unlock()

	// Before the first sync there is nothing to predict with.
	if global.Size() == 0 {
		latest, err := svc.client.GetGlobalModel()
		if err != nil {
			return nil, err
		}
		svc.apply(latest.RoundNumber, latest.Parameters)
		global = latest.Parameters
	}

	eval := model.NewSimpleNN(0)
	if err := eval.SetParameters(global); err != nil {
		return nil, err
	}

	return eval.Predict(req.Data)
}

func (svc *service) Status(_ context.Context) (messages.StatusReply, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return messages.StatusReply{
		Role:    "agent",
		State:   svc.state,
		Address: svc.address,
	}, nil
}

func (svc *service) setState(state string) {
	svc.mu.Lock()
	svc.state = state
	svc.mu.Unlock()
}
