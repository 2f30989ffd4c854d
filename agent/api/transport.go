package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/absmach/fedlearn/agent"
	"github.com/absmach/fedlearn/pkg/api"
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

func MakeHandler(svc agent.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Post("/message", otelhttp.NewHandler(kithttp.NewServer(
		messageEndpoint(svc),
		decodeMessageReq,
		api.EncodeResponse,
		opts...,
	), "message").ServeHTTP)

	mux.Post("/train", otelhttp.NewHandler(kithttp.NewServer(
		trainEndpoint(svc),
		decodeTrainReq,
		api.EncodeResponse,
		opts...,
	), "train").ServeHTTP)

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "status").ServeHTTP)

	mux.Get("/health", supermq.Health("agent", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeMessageReq(_ context.Context, r *http.Request) (any, error) {
	var req messageReq

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, api.ContentTypeCBOR):
		if err := cbor.NewDecoder(r.Body).Decode(&req.Message); err != nil {
			return nil, errors.Join(pkgerrors.ErrInvalidData, err)
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(&req.Message); err != nil {
			return nil, errors.Join(pkgerrors.ErrInvalidData, err)
		}
	}

	return req, nil
}

func decodeTrainReq(_ context.Context, r *http.Request) (any, error) {
	var req trainReq
	if err := json.NewDecoder(r.Body).Decode(&req.TrainRequest); err != nil {
		return nil, errors.Join(pkgerrors.ErrInvalidData, err)
	}

	return req, nil
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return emptyReq{}, nil
}
