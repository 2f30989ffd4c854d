package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/aggregator/api"
	"github.com/absmach/fedlearn/directory"
	"github.com/absmach/fedlearn/messages"
	"github.com/absmach/fedlearn/model"
	"github.com/absmach/fedlearn/pkg/storage"
)

func newTestServer(t *testing.T, size, expected int) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	members := directory.NewService(storage.NewInMemoryStorage(), logger)
	svc := aggregator.NewService(model.Zeros(size), expected, false, members, nil, nil, logger)

	srv := httptest.NewServer(api.MakeHandler(svc, logger, "test-instance"))
	t.Cleanup(srv.Close)

	return srv
}

func postMessage(t *testing.T, srv *httptest.Server, msg messages.Message) *http.Response {
	t.Helper()

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/message", "application/json", bytes.NewReader(body))
	require.NoError(t, err)

	return resp
}

func submission(id string, round uint64, values []float64) messages.Message {
	return messages.Message{
		Type: messages.UpdateSubmissionType,
		Submission: &messages.UpdateSubmission{
			ParticipantID: id,
			RoundNumber:   round,
			Parameters:    model.NewParameters(values),
		},
	}
}

func TestMessageSubmission(t *testing.T) {
	srv := newTestServer(t, 2, 2)

	resp := postMessage(t, srv, submission("agent-1", 0, []float64{1, 1}))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result aggregator.SubmitResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result.Received)
	assert.Equal(t, 2, result.Expected)
	assert.False(t, result.ClosedRound)
}

func TestMessageSubmissionRejections(t *testing.T) {
	tests := []struct {
		name string
		msg  messages.Message
		code int
	}{
		{
			name: "future round",
			msg:  submission("agent-1", 9, []float64{1, 1}),
			code: http.StatusConflict,
		},
		{
			name: "shape mismatch",
			msg:  submission("agent-1", 0, []float64{1, 1, 1}),
			code: http.StatusBadRequest,
		},
		{
			name: "missing payload",
			msg:  messages.Message{Type: messages.UpdateSubmissionType},
			code: http.StatusBadRequest,
		},
		{
			name: "unknown type",
			msg:  messages.Message{Type: "bogus"},
			code: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, 2, 2)

			resp := postMessage(t, srv, tt.msg)
			defer resp.Body.Close()
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestMessageDuplicateSubmission(t *testing.T) {
	srv := newTestServer(t, 2, 2)

	resp := postMessage(t, srv, submission("agent-1", 0, []float64{1, 1}))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postMessage(t, srv, submission("agent-1", 0, []float64{2, 2}))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMessageCBORSubmission(t *testing.T) {
	srv := newTestServer(t, 2, 2)

	body, err := cbor.Marshal(submission("agent-1", 0, []float64{1, 1}))
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/message", "application/cbor", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegistrationAndNodes(t *testing.T) {
	srv := newTestServer(t, 2, 2)

	resp := postMessage(t, srv, messages.Message{
		Type: messages.RegistrationType,
		Registration: &messages.Registration{
			ParticipantID: "agent-1",
			Address:       "http://localhost:9001",
		},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var lease directory.Lease
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lease))
	require.NotEmpty(t, lease.ID)

	renewal := postMessage(t, srv, messages.Message{
		Type:    messages.LeaseRenewalType,
		Renewal: &messages.LeaseRenewal{LeaseID: lease.ID},
	})
	renewal.Body.Close()
	assert.Equal(t, http.StatusNoContent, renewal.StatusCode)

	nodes, err := http.Get(srv.URL + "/api/nodes")
	require.NoError(t, err)
	defer nodes.Body.Close()
	require.Equal(t, http.StatusOK, nodes.StatusCode)

	var page struct {
		Nodes []aggregator.ParticipantStatus `json:"nodes"`
	}
	require.NoError(t, json.NewDecoder(nodes.Body).Decode(&page))
	require.Len(t, page.Nodes, 1)
	assert.Equal(t, "http://localhost:9001", page.Nodes[0].Address)
	assert.Equal(t, aggregator.StatusAlive, page.Nodes[0].Status)
}

func TestRenewalGoneLease(t *testing.T) {
	srv := newTestServer(t, 2, 2)

	resp := postMessage(t, srv, messages.Message{
		Type:    messages.LeaseRenewalType,
		Renewal: &messages.LeaseRenewal{LeaseID: "no-such-lease"},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestModelParams(t *testing.T) {
	srv := newTestServer(t, 2, 1)

	resp := postMessage(t, srv, submission("agent-1", 0, []float64{4, 6}))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	params, err := http.Get(srv.URL + "/api/model/params")
	require.NoError(t, err)
	defer params.Body.Close()
	require.Equal(t, http.StatusOK, params.StatusCode)

	var page struct {
		Status      string    `json:"status"`
		RoundNumber uint64    `json:"round_number"`
		Size        int       `json:"size"`
		Parameters  []float64 `json:"parameters"`
	}
	require.NoError(t, json.NewDecoder(params.Body).Decode(&page))
	assert.Equal(t, "ok", page.Status)
	assert.Equal(t, uint64(1), page.RoundNumber)
	assert.Equal(t, 2, page.Size)
	assert.Equal(t, []float64{4, 6}, page.Parameters)
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, 2, 3)

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, "aggregator", page.Status)
	assert.Equal(t, fmt.Sprintf("awaiting updates: %d/%d for round %d", 0, 3, 0), page.Message)
}
