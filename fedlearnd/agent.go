package fedlearnd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	fedlearn "github.com/absmach/fedlearn"
	"github.com/absmach/fedlearn/agent"
	"github.com/absmach/fedlearn/agent/api"
	"github.com/absmach/fedlearn/model"
	"github.com/absmach/fedlearn/pkg/sdk"
)

const agentSvcName = "agent"

var (
	agentName    = ""
	agentPort    = "9090"
	agentAddress = "http://localhost:9090"
	serverURL    = "http://localhost:8080"
	leaseTTL     = 30 * time.Second
	dataSamples  = 100
	dataSeed     = int64(0)
)

var agentCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start agent",
		Long:  `Start agent.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := fedlearn.AgentConfig{
				Name:        agentName,
				Port:        agentPort,
				Address:     agentAddress,
				ServerURL:   serverURL,
				LeaseTTL:    leaseTTL,
				DataSamples: dataSamples,
				DataSeed:    dataSeed,
			}
			if configPath != "" {
				loaded, err := fedlearn.LoadConfig(configPath)
				if err != nil {
					slog.Error("invalid config", slog.Any("error", err))

					return
				}
				cfg = loaded.Agent
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := StartAgent(ctx, cancel, cfg); err != nil {
				slog.Error("failed to start agent", slog.String("error", err.Error()))
			}
		},
	},
}

func NewAgentCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "agent [start]",
		Short: "Agent management",
		Long:  `Start agent for Fedlearn.`,
	}

	for i := range agentCmd {
		cmd.AddCommand(&agentCmd[i])
	}

	cmd.PersistentFlags().StringVarP(
		&logLevel,
		"log-level",
		"l",
		logLevel,
		"Log level",
	)

	cmd.PersistentFlags().StringVarP(
		&agentName,
		"name",
		"n",
		agentName,
		"Participant name",
	)

	cmd.PersistentFlags().StringVarP(
		&agentPort,
		"port",
		"p",
		agentPort,
		"HTTP port",
	)

	cmd.PersistentFlags().StringVarP(
		&agentAddress,
		"address",
		"a",
		agentAddress,
		"Externally reachable base URL",
	)

	cmd.PersistentFlags().StringVarP(
		&serverURL,
		"server-url",
		"s",
		serverURL,
		"Aggregator base URL",
	)

	cmd.PersistentFlags().DurationVarP(
		&leaseTTL,
		"lease-ttl",
		"t",
		leaseTTL,
		"Membership lease TTL",
	)

	cmd.PersistentFlags().IntVarP(
		&dataSamples,
		"data-samples",
		"S",
		dataSamples,
		"Synthetic samples to generate",
	)

	cmd.PersistentFlags().Int64VarP(
		&dataSeed,
		"data-seed",
		"r",
		dataSeed,
		"Seed for synthetic data (0 means current time)",
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

func StartAgent(ctx context.Context, cancel context.CancelFunc, cfg fedlearn.AgentConfig) error {
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

	if cfg.Name == "" {
		cfg.Name = namegenerator.NewGenerator().Generate()
	}
	if cfg.DataSeed == 0 {
		cfg.DataSeed = time.Now().UnixNano()
	}

	client := sdk.NewSDK(sdk.Config{ServerURL: cfg.ServerURL})
	trainer := model.NewSimpleNN(cfg.DataSeed)
	data := model.GenerateData(cfg.DataSamples, cfg.DataSeed)

	svc := agent.NewService(cfg.Name, cfg.Address, trainer, data, cfg.LeaseTTL, client, logger)

	serverConfig := server.Config{Port: cfg.Port}
	hs := httpserver.NewServer(ctx, cancel, agentSvcName, serverConfig, api.MakeHandler(svc, logger, uuid.NewString()), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return svc.Run(ctx)
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, agentSvcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", agentSvcName, err))
	}

	return nil
}
