package api

import (
	"github.com/absmach/fedlearn/messages"
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

type messageReq struct {
	messages.Message `json:",inline"`
}

func (m *messageReq) validate() error {
	return m.Message.Validate()
}

type trainReq struct {
	messages.TrainRequest `json:",inline"`
}

func (t *trainReq) validate() error {
	if len(t.Labels) == 0 {
		return pkgerrors.ErrInvalidData
	}

	return nil
}

type emptyReq struct{}
