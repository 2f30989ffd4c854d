package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/absmach/fedlearn/directory"
	"github.com/absmach/fedlearn/messages"
	"github.com/absmach/fedlearn/model"
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
	pkgmqtt "github.com/absmach/fedlearn/pkg/mqtt"
)

const (
	// AnnouncementTopic carries round-closure notifications for agents that
	// prefer push over polling.
	AnnouncementTopic = "fedlearn/rounds/announcements"

	broadcastRetries = 3
	broadcastDelay   = time.Second
)

type service struct {
	mu       sync.Mutex
	round    uint64
	global   model.Parameters
	pending  map[string]model.Parameters
	expected int

	staticExpected    int
	dynamicMembership bool

	members    directory.Service
	pubsub     pkgmqtt.PubSub
	httpClient *http.Client
	logger     *slog.Logger
}

// NewService builds an aggregator holding the given initial global model.
// When dynamicMembership is set, each new round's expected count is the
// directory's live count at round open; otherwise expectedCount is fixed.
// A count below one is raised to one so the barrier stays closable and
// pending submissions can never outnumber it. pubsub may be nil, in which
// case announcements go out over HTTP only.
func NewService(initial model.Parameters, expectedCount int, dynamicMembership bool, members directory.Service, pubsub pkgmqtt.PubSub, httpClient *http.Client, logger *slog.Logger) Service {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if expectedCount < 1 {
		expectedCount = 1
	}

	return &service{
		round:             0,
		global:            initial.Clone(),
		pending:           make(map[string]model.Parameters),
		expected:          expectedCount,
		staticExpected:    expectedCount,
		dynamicMembership: dynamicMembership,
		members:           members,
		pubsub:            pubsub,
		httpClient:        httpClient,
		logger:            logger,
	}
}

func (svc *service) SubmitUpdate(ctx context.Context, sub messages.UpdateSubmission) (SubmitResult, error) {
	if err := sub.Validate(); err != nil {
		return SubmitResult{}, err
	}

	var announcement messages.GlobalModelAnnouncement
	var targets []string
	closed := false

	svc.mu.Lock()
	switch {
	case sub.RoundNumber < svc.round:
		svc.mu.Unlock()

		return SubmitResult{}, pkgerrors.ErrStaleRound
	case sub.RoundNumber > svc.round:
		active := svc.round
		svc.mu.Unlock()
		svc.logger.WarnContext(ctx, "Submission from a future round, restart skew suspected",
			slog.String("participant_id", sub.ParticipantID),
			slog.Uint64("submitted_round", sub.RoundNumber),
			slog.Uint64("active_round", active))

		return SubmitResult{}, pkgerrors.ErrFutureRound
	}

	if _, ok := svc.pending[sub.ParticipantID]; ok {
		svc.mu.Unlock()

		return SubmitResult{}, pkgerrors.ErrDuplicateSubmission
	}

	if err := sub.Parameters.MatchesShape(svc.global); err != nil {
		svc.mu.Unlock()

		return SubmitResult{}, err
	}

	svc.pending[sub.ParticipantID] = sub.Parameters.Clone()
	result := SubmitResult{
		RoundNumber: svc.round,
		Received:    len(svc.pending),
		Expected:    svc.expected,
	}

	if len(svc.pending) == svc.expected {
		var err error
		announcement, targets, err = svc.closeRound(ctx)
		if err != nil {
			// Averaging over a corrupted pending set would publish garbage;
			// halt the round rather than aggregate inconsistent data.
			svc.mu.Unlock()

			return SubmitResult{}, err
		}
		closed = true
		result.ClosedRound = true
	}
	svc.mu.Unlock()

	svc.logger.InfoContext(ctx, "Accepted update",
		slog.String("participant_id", sub.ParticipantID),
		slog.Uint64("round", result.RoundNumber),
		slog.Int("received", result.Received),
		slog.Int("expected", result.Expected))

	if closed {
		// Delivery is best-effort and asynchronous: closure is already
		// observable through GetGlobalModel even if every push fails.
		go svc.broadcast(context.WithoutCancel(ctx), announcement, targets)
	}

	return result, nil
}

// closeRound runs under svc.mu. It averages the pending set, advances the
// round, replaces the global vector wholesale and snapshots the broadcast
// targets for delivery outside the lock.
func (svc *service) closeRound(ctx context.Context) (messages.GlobalModelAnnouncement, []string, error) {
	updates := make([]model.Parameters, 0, len(svc.pending))
	for _, p := range svc.pending {
		updates = append(updates, p)
	}

	averaged, err := model.Average(updates, svc.expected)
	if err != nil {
		return messages.GlobalModelAnnouncement{}, nil, err
	}

	closedRound := svc.round
	svc.round++
	svc.global = averaged
	svc.pending = make(map[string]model.Parameters)

	var targets []string
	if svc.members != nil {
		records, err := svc.members.ListAll(ctx)
		if err == nil {
			for _, rec := range records {
				if rec.Address != "" {
					targets = append(targets, rec.Address)
				}
			}
		}

		if svc.dynamicMembership {
			live, err := svc.members.ListLive(ctx)
			switch {
			case err != nil || len(live) == 0:
				// No live participants at round open: fall back to the
				// configured count so the next round stays well-defined.
				svc.expected = svc.staticExpected
			default:
				svc.expected = len(live)
			}
		}
	}

	svc.logger.InfoContext(ctx, "Round closed",
		slog.Uint64("closed_round", closedRound),
		slog.Uint64("active_round", svc.round),
		slog.Int("next_expected", svc.expected),
		slog.Int("targets", len(targets)))

	return messages.GlobalModelAnnouncement{
		RoundNumber: svc.round,
		Parameters:  svc.global.Clone(),
	}, targets, nil
}

func (svc *service) GetGlobalModel(_ context.Context) (GlobalModel, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return GlobalModel{
		RoundNumber: svc.round,
		Parameters:  svc.global.Clone(),
	}, nil
}

func (svc *service) GetParticipantView(ctx context.Context) ([]ParticipantStatus, error) {
	if svc.members == nil {
		return []ParticipantStatus{}, nil
	}

	records, err := svc.members.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	view := make([]ParticipantStatus, 0, len(records))
	for _, rec := range records {
		status := StatusExpired
		if rec.Live(now) {
			status = StatusAlive
		}
		view = append(view, ParticipantStatus{
			Address: rec.Address,
			Status:  status,
		})
	}

	return view, nil
}

func (svc *service) Register(ctx context.Context, reg messages.Registration) (directory.Lease, error) {
	if err := reg.Validate(); err != nil {
		return directory.Lease{}, err
	}
	if svc.members == nil {
		return directory.Lease{}, pkgerrors.ErrNotFound
	}

	return svc.members.Register(ctx, reg.ParticipantID, reg.Address, reg.TTL)
}

func (svc *service) RenewLease(ctx context.Context, leaseID string) error {
	if svc.members == nil {
		return pkgerrors.ErrNotFound
	}

	return svc.members.Renew(ctx, leaseID)
}

func (svc *service) Status(_ context.Context) (messages.StatusReply, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return messages.StatusReply{
		Role:  "aggregator",
		State: fmt.Sprintf("awaiting updates: %d/%d for round %d", len(svc.pending), svc.expected, svc.round),
	}, nil
}

// broadcast pushes the announcement to every known participant address and,
// when a broker is configured, publishes it once on the announcement topic.
// Failures are logged and retried with backoff; they never block closure.
func (svc *service) broadcast(ctx context.Context, announcement messages.GlobalModelAnnouncement, targets []string) {
	if svc.pubsub != nil {
		if err := svc.pubsub.Publish(ctx, AnnouncementTopic, announcement); err != nil {
			svc.logger.Warn("Failed to publish announcement",
				slog.String("topic", AnnouncementTopic),
				slog.Any("error", err))
		}
	}

	msg := messages.Message{
		Type:         messages.GlobalModelType,
		Announcement: &announcement,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		svc.logger.Error("Failed to marshal announcement", slog.Any("error", err))

		return
	}

	for _, addr := range targets {
		addr := addr
		go func() {
			err := retryWithBackoff(broadcastRetries, broadcastDelay, func() error {
				return svc.push(ctx, addr, body)
			})
			if err != nil {
				svc.logger.Warn("Failed to deliver announcement",
					slog.String("address", addr),
					slog.Uint64("round", announcement.RoundNumber),
					slog.Any("error", err))

				return
			}
			svc.logger.Info("Delivered announcement",
				slog.String("address", addr),
				slog.Uint64("round", announcement.RoundNumber))
		}()
	}
}

func (svc *service) push(ctx context.Context, addr string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/message", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("participant returned status: %d", resp.StatusCode)
	}

	return nil
}

func retryWithBackoff(maxRetries int, initialDelay time.Duration, operation func() error) error {
	delay := initialDelay
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay = time.Duration(float64(delay) * 1.5)
		}

		if err := operation(); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", maxRetries, lastErr)
}
