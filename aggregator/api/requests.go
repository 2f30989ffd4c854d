package api

import (
	"github.com/absmach/fedlearn/messages"
)

type messageReq struct {
	messages.Message `json:",inline"`
}

func (m *messageReq) validate() error {
	return m.Message.Validate()
}

type emptyReq struct{}
