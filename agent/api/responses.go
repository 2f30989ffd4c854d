package api

import (
	"net/http"

	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*ackResponse)(nil)
	_ supermq.Response = (*statusResponse)(nil)
	_ supermq.Response = (*predictResponse)(nil)
)

type ackResponse struct {
	accepted bool
}

func (a ackResponse) Code() int {
	if a.accepted {
		return http.StatusAccepted
	}

	return http.StatusOK
}

func (a ackResponse) Headers() map[string]string {
	return map[string]string{}
}

func (a ackResponse) Empty() bool {
	return true
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

func (p predictResponse) Code() int {
	return http.StatusOK
}

func (p predictResponse) Headers() map[string]string {
	return map[string]string{}
}

func (p predictResponse) Empty() bool {
	return false
}

type statusResponse struct {
	Address string `json:"address"`
	Status  string `json:"status"`
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
