// Package agent implements a training participant: it holds a local dataset,
// trains against the latest global model and submits updates round by round.
package agent

import (
	"context"

	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/directory"
	"github.com/absmach/fedlearn/messages"
)

// CoordinatorClient is the slice of the SDK the agent needs. It is satisfied
// by sdk.SDK and by test fakes.
type CoordinatorClient interface {
	SubmitUpdate(sub messages.UpdateSubmission) (aggregator.SubmitResult, error)
	GetGlobalModel() (aggregator.GlobalModel, error)
	Register(reg messages.Registration) (directory.Lease, error)
	Renew(leaseID string) error
}

type Service interface {
	// Run registers with the aggregator, keeps the lease fresh and drives
	// the train-submit-wait loop until ctx is cancelled.
	Run(ctx context.Context) error

	// HandleAnnouncement ingests a pushed global model so the round loop
	// can move on without waiting for its next poll.
	HandleAnnouncement(ctx context.Context, ann messages.GlobalModelAnnouncement) error

	// AddTrainingData appends externally supplied samples to the local
	// dataset and nudges the round loop to retrain and submit promptly.
	AddTrainingData(ctx context.Context, req messages.TrainRequest) error

	// Predict runs the latest synced global model over the given feature
	// rows.
	Predict(ctx context.Context, req messages.PredictRequest) ([]float64, error)

	// Status describes the agent for the /status probe.
	Status(ctx context.Context) (messages.StatusReply, error)
}
