// Package directory tracks live participants through TTL leases. A record
// stays visible only while its lease is renewed; expiry needs no active
// deregistration, so a crashed agent simply vanishes from the live set.
package directory

import (
	"context"
	"time"
)

const DefTTL = 30 * time.Second

// Record is one participant's registration. A record is live iff
// now - LastRenewed < TTL.
type Record struct {
	ParticipantID string        `json:"participant_id"`
	Address       string        `json:"address"`
	LeaseID       string        `json:"lease_id"`
	LastRenewed   time.Time     `json:"last_renewed"`
	TTL           time.Duration `json:"ttl"`
}

func (r Record) Live(now time.Time) bool {
	return now.Sub(r.LastRenewed) < r.TTL
}

// Lease is the handle returned on registration; the caller renews it
// periodically, well inside the TTL, to stay live.
type Lease struct {
	ID            string        `json:"id"`
	ParticipantID string        `json:"participant_id"`
	TTL           time.Duration `json:"ttl"`
}

// Member is a live participant as seen by readers.
type Member struct {
	ParticipantID string `json:"participant_id"`
	Address       string `json:"address"`
}

type Service interface {
	// Register creates or refreshes the participant's record and returns a
	// lease handle. Re-registering an existing participant replaces the
	// previous lease.
	Register(ctx context.Context, participantID, address string, ttl time.Duration) (Lease, error)

	// Renew extends the lease's last-renewed timestamp. Renewing an expired
	// or unknown lease fails with ErrLeaseExpired; the caller must
	// re-register from scratch.
	Renew(ctx context.Context, leaseID string) error

	// Deregister removes the record immediately.
	Deregister(ctx context.Context, leaseID string) error

	// ListLive returns a snapshot of currently-live records.
	ListLive(ctx context.Context) ([]Member, error)

	// ListAll returns every record with its liveness, for observability.
	ListAll(ctx context.Context) ([]Record, error)

	// Sweep physically removes expired records. Expired records are already
	// invisible to ListLive; sweeping only reclaims storage.
	Sweep(ctx context.Context)
}
