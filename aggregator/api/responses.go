package api

import (
	"net/http"

	"github.com/absmach/supermq"

	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/directory"
)

var (
	_ supermq.Response = (*submitResponse)(nil)
	_ supermq.Response = (*registrationResponse)(nil)
	_ supermq.Response = (*renewalResponse)(nil)
	_ supermq.Response = (*statusResponse)(nil)
	_ supermq.Response = (*nodesResponse)(nil)
	_ supermq.Response = (*modelParamsResponse)(nil)
)

type submitResponse struct {
	aggregator.SubmitResult
}

func (s submitResponse) Code() int {
	return http.StatusOK
}

func (s submitResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s submitResponse) Empty() bool {
	return false
}

type registrationResponse struct {
	directory.Lease
	created bool
}

func (r registrationResponse) Code() int {
	if r.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (r registrationResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r registrationResponse) Empty() bool {
	return false
}

type renewalResponse struct{}

func (r renewalResponse) Code() int {
	return http.StatusNoContent
}

func (r renewalResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r renewalResponse) Empty() bool {
	return true
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s statusResponse) Code() int {
	return http.StatusOK
}

func (s statusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s statusResponse) Empty() bool {
	return false
}

type nodesResponse struct {
	Nodes []aggregator.ParticipantStatus `json:"nodes"`
}

func (n nodesResponse) Code() int {
	return http.StatusOK
}

func (n nodesResponse) Headers() map[string]string {
	return map[string]string{}
}

func (n nodesResponse) Empty() bool {
	return false
}

type modelParamsResponse struct {
	Status      string    `json:"status"`
	RoundNumber uint64    `json:"round_number"`
	Size        int       `json:"size"`
	Parameters  []float64 `json:"parameters"`
}

func (m modelParamsResponse) Code() int {
	return http.StatusOK
}

func (m modelParamsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (m modelParamsResponse) Empty() bool {
	return false
}
