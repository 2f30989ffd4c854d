package api

import (
	"context"
	"errors"

	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"

	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/messages"
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

func messageEndpoint(svc aggregator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(messageReq)
		if !ok {
			return submitResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return submitResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		switch req.Type {
		case messages.UpdateSubmissionType:
			result, err := svc.SubmitUpdate(ctx, *req.Submission)
			if err != nil {
				return submitResponse{}, err
			}

			return submitResponse{SubmitResult: result}, nil
		case messages.RegistrationType:
			lease, err := svc.Register(ctx, *req.Registration)
			if err != nil {
				return registrationResponse{}, err
			}

			return registrationResponse{Lease: lease, created: true}, nil
		case messages.LeaseRenewalType:
			if err := svc.RenewLease(ctx, req.Renewal.LeaseID); err != nil {
				return renewalResponse{}, err
			}

			return renewalResponse{}, nil
		case messages.StatusQueryType:
			reply, err := svc.Status(ctx)
			if err != nil {
				return statusResponse{}, err
			}

			return statusResponse{Status: reply.Role, Message: reply.State}, nil
		default:
			return submitResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
	}
}

func statusEndpoint(svc aggregator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		reply, err := svc.Status(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{Status: reply.Role, Message: reply.State}, nil
	}
}

func listNodesEndpoint(svc aggregator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		view, err := svc.GetParticipantView(ctx)
		if err != nil {
			return nodesResponse{}, err
		}

		return nodesResponse{Nodes: view}, nil
	}
}

func modelParamsEndpoint(svc aggregator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		global, err := svc.GetGlobalModel(ctx)
		if err != nil {
			return modelParamsResponse{}, err
		}

		return modelParamsResponse{
			Status:      "ok",
			RoundNumber: global.RoundNumber,
			Size:        global.Parameters.Size(),
			Parameters:  global.Parameters.Values,
		}, nil
	}
}
