package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/aggregator/api"
	"github.com/absmach/fedlearn/aggregator/middleware"
	"github.com/absmach/fedlearn/directory"
	"github.com/absmach/fedlearn/model"
	"github.com/absmach/fedlearn/pkg/mqtt"
	"github.com/absmach/fedlearn/pkg/storage"
)

const (
	svcName       = "aggregator"
	defHTTPPort   = "8080"
	envPrefixHTTP = "AGGREGATOR_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel          string        `env:"AGGREGATOR_LOG_LEVEL"          envDefault:"info"`
	InstanceID        string        `env:"AGGREGATOR_INSTANCE_ID"`
	ExpectedAgents    int           `env:"AGGREGATOR_EXPECTED_AGENTS"    envDefault:"3"`
	DynamicMembership bool          `env:"AGGREGATOR_DYNAMIC_MEMBERSHIP" envDefault:"false"`
	SweepInterval     time.Duration `env:"AGGREGATOR_SWEEP_INTERVAL"     envDefault:"15s"`
	MQTTAddress       string        `env:"AGGREGATOR_MQTT_ADDRESS"`
	MQTTQoS           uint8         `env:"AGGREGATOR_MQTT_QOS"           envDefault:"2"`
	MQTTTimeout       time.Duration `env:"AGGREGATOR_MQTT_TIMEOUT"       envDefault:"30s"`
	OTELURL           url.URL       `env:"AGGREGATOR_OTEL_URL"`
	TraceRatio        float64       `env:"AGGREGATOR_TRACE_RATIO"        envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, "", cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	var pubsub mqtt.PubSub
	if cfg.MQTTAddress != "" {
		ps, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName, cfg.MQTTTimeout, logger)
		if err != nil {
			logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

			return
		}
		pubsub = ps
	}

	members := directory.NewService(storage.NewInMemoryStorage(), logger)
	go directory.StartSweeper(ctx, members, cfg.SweepInterval)

	svc := aggregator.NewService(
		model.Zeros(model.ParameterCount),
		cfg.ExpectedAgents,
		cfg.DynamicMembership,
		members,
		pubsub,
		nil,
		logger,
	)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}
