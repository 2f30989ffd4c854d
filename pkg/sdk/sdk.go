// Package sdk is an HTTP client for the aggregator and agent APIs, used by
// the CLI and by agents talking to the aggregator.
package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/directory"
	"github.com/absmach/fedlearn/messages"
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

const CTJSON string = "application/json"

type SDK interface {
	// SubmitUpdate sends a participant's update for a round.
	//
	// example:
	//  result, _ := sdk.SubmitUpdate(messages.UpdateSubmission{
	//    ParticipantID: "agent-1",
	//    RoundNumber:   0,
	//    Parameters:    params,
	//  })
	//  fmt.Println(result)
	SubmitUpdate(sub messages.UpdateSubmission) (aggregator.SubmitResult, error)

	// GetGlobalModel fetches the latest global model and its round number.
	//
	// example:
	//  global, _ := sdk.GetGlobalModel()
	//  fmt.Println(global.RoundNumber)
	GetGlobalModel() (aggregator.GlobalModel, error)

	// ListNodes lists known participants with liveness.
	//
	// example:
	//  nodes, _ := sdk.ListNodes()
	//  fmt.Println(nodes)
	ListNodes() ([]aggregator.ParticipantStatus, error)

	// Status probes the server role and state description.
	//
	// example:
	//  status, _ := sdk.Status()
	//  fmt.Println(status)
	Status() (StatusPage, error)

	// Register creates a membership lease for a participant.
	//
	// example:
	//  lease, _ := sdk.Register(messages.Registration{
	//    ParticipantID: "agent-1",
	//    Address:       "http://localhost:9000",
	//  })
	Register(reg messages.Registration) (directory.Lease, error)

	// Renew extends a lease before it expires.
	//
	// example:
	//  _ = sdk.Renew("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	Renew(leaseID string) error

	// Train asks an agent to train on the provided samples.
	//
	// example:
	//  _ = sdk.Train(agentURL, messages.TrainRequest{Data: data, Labels: labels})
	Train(agentURL string, req messages.TrainRequest) error
}

type flSDK struct {
	serverURL string
	client    *http.Client
}

type Config struct {
	ServerURL       string
	TLSVerification bool
	Timeout         time.Duration
}

func NewSDK(cfg Config) SDK {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &flSDK{
		serverURL: cfg.ServerURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

type StatusPage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (sdk *flSDK) SubmitUpdate(sub messages.UpdateSubmission) (aggregator.SubmitResult, error) {
	msg := messages.Message{
		Type:       messages.UpdateSubmissionType,
		Submission: &sub,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return aggregator.SubmitResult{}, err
	}

	body, err := sdk.processRequest(http.MethodPost, sdk.serverURL+"/message", data, http.StatusOK)
	if err != nil {
		return aggregator.SubmitResult{}, err
	}

	var result aggregator.SubmitResult
	if err := json.Unmarshal(body, &result); err != nil {
		return aggregator.SubmitResult{}, err
	}

	return result, nil
}

func (sdk *flSDK) GetGlobalModel() (aggregator.GlobalModel, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.serverURL+"/api/model/params", nil, http.StatusOK)
	if err != nil {
		return aggregator.GlobalModel{}, err
	}

	var page struct {
		RoundNumber uint64    `json:"round_number"`
		Parameters  []float64 `json:"parameters"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return aggregator.GlobalModel{}, err
	}

	global := aggregator.GlobalModel{
		RoundNumber: page.RoundNumber,
	}
	global.Parameters.Values = page.Parameters

	return global, nil
}

func (sdk *flSDK) ListNodes() ([]aggregator.ParticipantStatus, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.serverURL+"/api/nodes", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var page struct {
		Nodes []aggregator.ParticipantStatus `json:"nodes"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, err
	}

	return page.Nodes, nil
}

func (sdk *flSDK) Status() (StatusPage, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.serverURL+"/status", nil, http.StatusOK)
	if err != nil {
		return StatusPage{}, err
	}

	var page StatusPage
	if err := json.Unmarshal(body, &page); err != nil {
		return StatusPage{}, err
	}

	return page, nil
}

func (sdk *flSDK) Register(reg messages.Registration) (directory.Lease, error) {
	msg := messages.Message{
		Type:         messages.RegistrationType,
		Registration: &reg,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return directory.Lease{}, err
	}

	body, err := sdk.processRequest(http.MethodPost, sdk.serverURL+"/message", data, http.StatusCreated)
	if err != nil {
		return directory.Lease{}, err
	}

	var lease directory.Lease
	if err := json.Unmarshal(body, &lease); err != nil {
		return directory.Lease{}, err
	}

	return lease, nil
}

func (sdk *flSDK) Renew(leaseID string) error {
	msg := messages.Message{
		Type:    messages.LeaseRenewalType,
		Renewal: &messages.LeaseRenewal{LeaseID: leaseID},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = sdk.processRequest(http.MethodPost, sdk.serverURL+"/message", data, http.StatusNoContent)

	return err
}

func (sdk *flSDK) Train(agentURL string, req messages.TrainRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequest(http.MethodPost, agentURL+"/train", bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return nil
}

func (sdk *flSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, decodeError(resp.StatusCode, body)
	}

	return body, nil
}

// decodeError maps a rejection body back onto the sentinel the server
// raised, so callers can branch with errors.Is across the wire.
func decodeError(code int, body []byte) error {
	var page struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &page); err == nil && page.Error != "" {
		for _, sentinel := range []error{
			pkgerrors.ErrStaleRound,
			pkgerrors.ErrFutureRound,
			pkgerrors.ErrShapeMismatch,
			pkgerrors.ErrDuplicateSubmission,
			pkgerrors.ErrLeaseExpired,
			pkgerrors.ErrNotFound,
		} {
			if strings.Contains(page.Error, sentinel.Error()) {
				return sentinel
			}
		}

		return fmt.Errorf("unexpected response code %d: %s", code, page.Error)
	}

	return fmt.Errorf("unexpected response code: %d", code)
}
