package messages_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/fedlearn/messages"
	"github.com/absmach/fedlearn/model"
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  messages.Message
		err  error
	}{
		{
			name: "valid submission",
			msg: messages.Message{
				Type: messages.UpdateSubmissionType,
				Submission: &messages.UpdateSubmission{
					ParticipantID: "agent-1",
					Parameters:    model.NewParameters([]float64{1}),
				},
			},
		},
		{
			name: "submission without payload",
			msg:  messages.Message{Type: messages.UpdateSubmissionType},
			err:  pkgerrors.ErrInvalidData,
		},
		{
			name: "submission without participant",
			msg: messages.Message{
				Type: messages.UpdateSubmissionType,
				Submission: &messages.UpdateSubmission{
					Parameters: model.NewParameters([]float64{1}),
				},
			},
			err: pkgerrors.ErrEmptyKey,
		},
		{
			name: "submission without parameters",
			msg: messages.Message{
				Type:       messages.UpdateSubmissionType,
				Submission: &messages.UpdateSubmission{ParticipantID: "agent-1"},
			},
			err: pkgerrors.ErrInvalidData,
		},
		{
			name: "valid registration",
			msg: messages.Message{
				Type: messages.RegistrationType,
				Registration: &messages.Registration{
					ParticipantID: "agent-1",
					Address:       "http://localhost:9001",
				},
			},
		},
		{
			name: "registration without address",
			msg: messages.Message{
				Type:         messages.RegistrationType,
				Registration: &messages.Registration{ParticipantID: "agent-1"},
			},
			err: pkgerrors.ErrInvalidData,
		},
		{
			name: "renewal without lease",
			msg: messages.Message{
				Type:    messages.LeaseRenewalType,
				Renewal: &messages.LeaseRenewal{},
			},
			err: pkgerrors.ErrInvalidData,
		},
		{
			name: "valid predict",
			msg: messages.Message{
				Type:    messages.PredictType,
				Predict: &messages.PredictRequest{Data: []float64{1, 2}},
			},
		},
		{
			name: "predict without data",
			msg: messages.Message{
				Type:    messages.PredictType,
				Predict: &messages.PredictRequest{},
			},
			err: pkgerrors.ErrInvalidData,
		},
		{
			name: "status query",
			msg:  messages.Message{Type: messages.StatusQueryType},
		},
		{
			name: "unknown type",
			msg:  messages.Message{Type: "bogus"},
			err:  pkgerrors.ErrInvalidData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)

				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMessageTaggedUnionJSON(t *testing.T) {
	msg := messages.Message{
		Type: messages.GlobalModelType,
		Announcement: &messages.GlobalModelAnnouncement{
			RoundNumber: 4,
			Parameters:  model.NewParameters([]float64{1, 2}),
		},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	// Unset payloads stay off the wire.
	assert.NotContains(t, string(data), "submission")
	assert.NotContains(t, string(data), "registration")

	var decoded messages.Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.Announcement)
	assert.Equal(t, uint64(4), decoded.Announcement.RoundNumber)
	assert.Equal(t, []float64{1, 2}, decoded.Announcement.Parameters.Values)
}
