// Package fedlearnd embeds the aggregator and agent services behind cobra
// commands so a whole training cluster can be driven from one binary.
package fedlearnd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	fedlearn "github.com/absmach/fedlearn"
	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/aggregator/api"
	"github.com/absmach/fedlearn/aggregator/middleware"
	"github.com/absmach/fedlearn/directory"
	"github.com/absmach/fedlearn/model"
	"github.com/absmach/fedlearn/pkg/mqtt"
	"github.com/absmach/fedlearn/pkg/storage"
)

const aggregatorSvcName = "aggregator"

var (
	expectedAgents    = 3
	dynamicMembership = false
	sweepInterval     = 15 * time.Second
	aggregatorPort    = "8080"
)

var aggregatorCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start aggregator",
		Long:  `Start aggregator.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := fedlearn.AggregatorConfig{
				Port:              aggregatorPort,
				ExpectedAgents:    expectedAgents,
				DynamicMembership: dynamicMembership,
				SweepInterval:     sweepInterval,
				MQTTAddress:       mqttAddress,
			}
			if configPath != "" {
				loaded, err := fedlearn.LoadConfig(configPath)
				if err != nil {
					slog.Error("invalid config", slog.Any("error", err))

					return
				}
				cfg = loaded.Aggregator
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := StartAggregator(ctx, cancel, cfg); err != nil {
				slog.Error("failed to start aggregator", slog.String("error", err.Error()))
			}
		},
	},
}

func NewAggregatorCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "aggregator [start]",
		Short: "Aggregator management",
		Long:  `Start aggregator for Fedlearn.`,
	}

	for i := range aggregatorCmd {
		cmd.AddCommand(&aggregatorCmd[i])
	}

	cmd.PersistentFlags().StringVarP(
		&logLevel,
		"log-level",
		"l",
		logLevel,
		"Log level",
	)

	cmd.PersistentFlags().StringVarP(
		&aggregatorPort,
		"port",
		"p",
		aggregatorPort,
		"HTTP port",
	)

	cmd.PersistentFlags().IntVarP(
		&expectedAgents,
		"expected-agents",
		"e",
		expectedAgents,
		"Participants required to close a round",
	)

	cmd.PersistentFlags().BoolVarP(
		&dynamicMembership,
		"dynamic-membership",
		"d",
		dynamicMembership,
		"Derive expected count from live leases at round open",
	)

	cmd.PersistentFlags().DurationVarP(
		&sweepInterval,
		"sweep-interval",
		"I",
		sweepInterval,
		"Lease sweep interval",
	)

	cmd.PersistentFlags().StringVarP(
		&mqttAddress,
		"mqtt-address",
		"m",
		mqttAddress,
		"MQTT Address",
	)

	cmd.PersistentFlags().StringVarP(
		&configPath,
		"config",
		"c",
		configPath,
		"TOML config path",
	)

	return &cmd
}

func StartAggregator(ctx context.Context, cancel context.CancelFunc, cfg fedlearn.AggregatorConfig) error {
	g, ctx := errgroup.WithContext(ctx)

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	tracer := noop.NewTracerProvider().Tracer(aggregatorSvcName)

	var pubsub mqtt.PubSub
	if cfg.MQTTAddress != "" {
		ps, err := mqtt.NewPubSub(cfg.MQTTAddress, mqttQoS, aggregatorSvcName, mqttTimeout, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize mqtt pubsub: %s", err.Error())
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
	counter, latency := prometheus.MakeMetrics(aggregatorSvcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	serverConfig := server.Config{Port: cfg.Port}
	hs := httpserver.NewServer(ctx, cancel, aggregatorSvcName, serverConfig, api.MakeHandler(svc, logger, uuid.NewString()), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, aggregatorSvcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", aggregatorSvcName, err))
	}

	return nil
}
