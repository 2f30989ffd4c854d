package api

import (
	"context"
	"errors"

	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"

	"github.com/absmach/fedlearn/agent"
	"github.com/absmach/fedlearn/messages"
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

func messageEndpoint(svc agent.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(messageReq)
		if !ok {
			return ackResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return ackResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		switch req.Type {
		case messages.GlobalModelType:
			if err := svc.HandleAnnouncement(ctx, *req.Announcement); err != nil {
				return ackResponse{}, err
			}

			return ackResponse{}, nil
		case messages.TrainType:
			if err := svc.AddTrainingData(ctx, *req.Train); err != nil {
				return ackResponse{}, err
			}

			return ackResponse{accepted: true}, nil
		case messages.PredictType:
			predictions, err := svc.Predict(ctx, *req.Predict)
			if err != nil {
				return predictResponse{}, err
			}

			return predictResponse{Predictions: predictions}, nil
		case messages.StatusQueryType:
			reply, err := svc.Status(ctx)
			if err != nil {
				return statusResponse{}, err
			}

			return statusResponse{Address: reply.Address, Status: reply.State}, nil
		default:
			return ackResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
	}
}

func trainEndpoint(svc agent.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(trainReq)
		if !ok {
			return ackResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return ackResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.AddTrainingData(ctx, req.TrainRequest); err != nil {
			return ackResponse{}, err
		}

		return ackResponse{accepted: true}, nil
	}
}

func statusEndpoint(svc agent.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		reply, err := svc.Status(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{Address: reply.Address, Status: reply.State}, nil
	}
}
