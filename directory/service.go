package directory

import (
	"context"
	"log/slog"
	"sort"
	"time"

	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
	"github.com/absmach/fedlearn/pkg/storage"
	"github.com/google/uuid"
)

const (
	defOffset = 0
	defLimit  = 1000
)

type service struct {
	records storage.Storage
	logger  *slog.Logger
}

func NewService(records storage.Storage, logger *slog.Logger) Service {
	return &service{
		records: records,
		logger:  logger,
	}
}

func (svc *service) Register(ctx context.Context, participantID, address string, ttl time.Duration) (Lease, error) {
	if participantID == "" {
		return Lease{}, pkgerrors.ErrEmptyKey
	}
	if address == "" {
		return Lease{}, pkgerrors.ErrInvalidData
	}
	if ttl <= 0 {
		ttl = DefTTL
	}

	rec := Record{
		ParticipantID: participantID,
		Address:       address,
		LeaseID:       uuid.NewString(),
		LastRenewed:   time.Now(),
		TTL:           ttl,
	}

	if err := svc.records.Upsert(ctx, participantID, rec); err != nil {
		return Lease{}, err
	}

	svc.logger.InfoContext(ctx, "Registered participant",
		slog.String("participant_id", participantID),
		slog.String("address", address),
		slog.Duration("ttl", ttl))

	return Lease{ID: rec.LeaseID, ParticipantID: participantID, TTL: ttl}, nil
}

func (svc *service) Renew(ctx context.Context, leaseID string) error {
	if leaseID == "" {
		return pkgerrors.ErrEmptyKey
	}

	rec, err := svc.findByLease(ctx, leaseID)
	if err != nil {
		return err
	}

	if !rec.Live(time.Now()) {
		// Lazy sweep: the record outlived its TTL without renewal.
		_ = svc.records.Delete(ctx, rec.ParticipantID)

		return pkgerrors.ErrLeaseExpired
	}

	rec.LastRenewed = time.Now()

	return svc.records.Update(ctx, rec.ParticipantID, rec)
}

func (svc *service) Deregister(ctx context.Context, leaseID string) error {
	rec, err := svc.findByLease(ctx, leaseID)
	if err != nil {
		return err
	}

	return svc.records.Delete(ctx, rec.ParticipantID)
}

func (svc *service) ListLive(ctx context.Context) ([]Member, error) {
	records, err := svc.list(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	members := make([]Member, 0, len(records))
	for _, rec := range records {
		if rec.Live(now) {
			members = append(members, Member{
				ParticipantID: rec.ParticipantID,
				Address:       rec.Address,
			})
		}
	}

	return members, nil
}

func (svc *service) ListAll(ctx context.Context) ([]Record, error) {
	return svc.list(ctx)
}

func (svc *service) Sweep(ctx context.Context) {
	records, err := svc.list(ctx)
	if err != nil {
		svc.logger.WarnContext(ctx, "Failed to list records for sweep", slog.Any("error", err))

		return
	}

	now := time.Now()
	for _, rec := range records {
		if !rec.Live(now) {
			if err := svc.records.Delete(ctx, rec.ParticipantID); err != nil {
				continue
			}
			svc.logger.InfoContext(ctx, "Swept expired lease",
				slog.String("participant_id", rec.ParticipantID),
				slog.String("lease_id", rec.LeaseID))
		}
	}
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func StartSweeper(ctx context.Context, svc Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Sweep(ctx)
		}
	}
}

func (svc *service) list(ctx context.Context) ([]Record, error) {
	data, _, err := svc.records.List(ctx, defOffset, defLimit)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(data))
	for i := range data {
		rec, ok := data[i].(Record)
		if !ok {
			return nil, pkgerrors.ErrInvalidData
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ParticipantID < records[j].ParticipantID
	})

	return records, nil
}

func (svc *service) findByLease(ctx context.Context, leaseID string) (Record, error) {
	records, err := svc.list(ctx)
	if err != nil {
		return Record{}, err
	}

	for _, rec := range records {
		if rec.LeaseID == leaseID {
			return rec, nil
		}
	}

	return Record{}, pkgerrors.ErrLeaseExpired
}
