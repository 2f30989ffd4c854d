// Package aggregator owns the canonical global model and the active round's
// collected updates. All round-state mutation is serialized through one
// mutex so concurrent submissions over independent connections can never
// corrupt the pending set or double-trigger closure.
package aggregator

import (
	"context"

	"github.com/absmach/fedlearn/directory"
	"github.com/absmach/fedlearn/messages"
	"github.com/absmach/fedlearn/model"
)

// GlobalModel is the latest closed (or initial) global state.
type GlobalModel struct {
	RoundNumber uint64           `json:"round_number"`
	Parameters  model.Parameters `json:"parameters"`
}

// SubmitResult reports an accepted submission. ClosedRound is true for
// exactly one submission per round: the one that completed the barrier.
type SubmitResult struct {
	RoundNumber uint64 `json:"round_number"`
	Received    int    `json:"received"`
	Expected    int    `json:"expected"`
	ClosedRound bool   `json:"closed_round"`
}

// ParticipantStatus is one row of the operator-facing participant view.
type ParticipantStatus struct {
	Address string `json:"address"`
	Status  string `json:"status"`
}

const (
	StatusAlive   = "active"
	StatusExpired = "expired"
)

type Service interface {
	// SubmitUpdate accepts a participant's update for the active round.
	// Stale, future, duplicate and shape-mismatched submissions are rejected
	// with the matching sentinel error and leave round state untouched. If
	// the accepted update completes the barrier, the round closes
	// synchronously before SubmitUpdate returns.
	SubmitUpdate(ctx context.Context, sub messages.UpdateSubmission) (SubmitResult, error)

	// GetGlobalModel returns the latest closed global state. It never blocks
	// on an in-progress round.
	GetGlobalModel(ctx context.Context) (GlobalModel, error)

	// GetParticipantView lists known participants with their liveness, in
	// stable order.
	GetParticipantView(ctx context.Context) ([]ParticipantStatus, error)

	// Register and RenewLease delegate to the membership directory.
	Register(ctx context.Context, reg messages.Registration) (directory.Lease, error)
	RenewLease(ctx context.Context, leaseID string) error

	// Status describes the server for the /status probe.
	Status(ctx context.Context) (messages.StatusReply, error)
}
