package messages

import (
	"time"

	"github.com/absmach/fedlearn/model"
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

type Type string

const (
	UpdateSubmissionType Type = "update_submission"
	GlobalModelType      Type = "global_model"
	StatusQueryType      Type = "status_query"
	RegistrationType     Type = "registration"
	LeaseRenewalType     Type = "lease_renewal"
	TrainType            Type = "train"
	PredictType          Type = "predict"
)

// Message is the tagged union posted to /message. Exactly one payload field
// is set, selected by Type.
type Message struct {
	Type         Type                     `json:"type"`
	Submission   *UpdateSubmission        `json:"submission,omitempty"`
	Announcement *GlobalModelAnnouncement `json:"announcement,omitempty"`
	Registration *Registration            `json:"registration,omitempty"`
	Renewal      *LeaseRenewal            `json:"renewal,omitempty"`
	Train        *TrainRequest            `json:"train,omitempty"`
	Predict      *PredictRequest          `json:"predict,omitempty"`
}

type UpdateSubmission struct {
	ParticipantID string           `json:"participant_id"`
	RoundNumber   uint64           `json:"round_number"`
	Parameters    model.Parameters `json:"parameters"`
}

type GlobalModelAnnouncement struct {
	RoundNumber uint64           `json:"round_number"`
	Parameters  model.Parameters `json:"parameters"`
}

type Registration struct {
	ParticipantID string        `json:"participant_id"`
	Address       string        `json:"address"`
	TTL           time.Duration `json:"ttl"`
}

type LeaseRenewal struct {
	LeaseID string `json:"lease_id"`
}

type TrainRequest struct {
	Data   []float64 `json:"data"`
	Labels []float64 `json:"labels"`
}

type PredictRequest struct {
	Data []float64 `json:"data"`
}

type StatusReply struct {
	Role    string `json:"role"`
	State   string `json:"state_description"`
	Address string `json:"address,omitempty"`
}

func (m Message) Validate() error {
	switch m.Type {
	case UpdateSubmissionType:
		if m.Submission == nil {
			return pkgerrors.ErrInvalidData
		}

		return m.Submission.Validate()
	case GlobalModelType:
		if m.Announcement == nil {
			return pkgerrors.ErrInvalidData
		}

		return m.Announcement.Validate()
	case RegistrationType:
		if m.Registration == nil {
			return pkgerrors.ErrInvalidData
		}

		return m.Registration.Validate()
	case LeaseRenewalType:
		if m.Renewal == nil || m.Renewal.LeaseID == "" {
			return pkgerrors.ErrInvalidData
		}

		return nil
	case TrainType:
		if m.Train == nil || len(m.Train.Labels) == 0 {
			return pkgerrors.ErrInvalidData
		}

		return nil
	case PredictType:
		if m.Predict == nil || len(m.Predict.Data) == 0 {
			return pkgerrors.ErrInvalidData
		}

		return nil
	case StatusQueryType:
		return nil
	default:
		return pkgerrors.ErrInvalidData
	}
}

func (s UpdateSubmission) Validate() error {
	if s.ParticipantID == "" {
		return pkgerrors.ErrEmptyKey
	}
	if s.Parameters.Size() == 0 {
		return pkgerrors.ErrInvalidData
	}

	return nil
}

func (a GlobalModelAnnouncement) Validate() error {
	if a.Parameters.Size() == 0 {
		return pkgerrors.ErrInvalidData
	}

	return nil
}

func (r Registration) Validate() error {
	if r.ParticipantID == "" {
		return pkgerrors.ErrEmptyKey
	}
	if r.Address == "" {
		return pkgerrors.ErrInvalidData
	}

	return nil
}
