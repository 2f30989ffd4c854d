package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/absmach/fedlearn/agent"
	"github.com/absmach/fedlearn/agent/api"
	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/messages"
	"github.com/absmach/fedlearn/model"
	"github.com/absmach/fedlearn/pkg/mqtt"
	"github.com/absmach/fedlearn/pkg/sdk"
)

const (
	svcName       = "agent"
	defHTTPPort   = "9090"
	envPrefixHTTP = "AGENT_HTTP_"
	pathEnv       = ".env"
)

var namegen = namegenerator.NewGenerator()

type envConfig struct {
	LogLevel      string        `env:"AGENT_LOG_LEVEL"      envDefault:"info"`
	InstanceID    string        `env:"AGENT_INSTANCE_ID"`
	Name          string        `env:"AGENT_NAME"`
	Address       string        `env:"AGENT_ADDRESS"        envDefault:"http://localhost:9090"`
	ServerURL     string        `env:"AGENT_SERVER_URL"     envDefault:"http://localhost:8080"`
	LeaseTTL      time.Duration `env:"AGENT_LEASE_TTL"      envDefault:"30s"`
	DataSamples   int           `env:"AGENT_DATA_SAMPLES"   envDefault:"100"`
	DataSeed      int64         `env:"AGENT_DATA_SEED"      envDefault:"0"`
	MQTTAddress   string        `env:"AGENT_MQTT_ADDRESS"`
	MQTTQoS       uint8         `env:"AGENT_MQTT_QOS"       envDefault:"2"`
	MQTTTimeout   time.Duration `env:"AGENT_MQTT_TIMEOUT"   envDefault:"30s"`
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
	if cfg.Name == "" {
		cfg.Name = namegen.Generate()
	}
	if cfg.DataSeed == 0 {
		cfg.DataSeed = time.Now().UnixNano()
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

	client := sdk.NewSDK(sdk.Config{ServerURL: cfg.ServerURL})
	trainer := model.NewSimpleNN(cfg.DataSeed)
	data := model.GenerateData(cfg.DataSamples, cfg.DataSeed)

	svc := agent.NewService(cfg.Name, cfg.Address, trainer, data, cfg.LeaseTTL, client, logger)

	if cfg.MQTTAddress != "" {
		pubsub, err := mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName+"-"+cfg.Name, cfg.MQTTTimeout, logger)
		if err != nil {
			logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

			return
		}
		err = pubsub.Subscribe(ctx, aggregator.AnnouncementTopic, func(topic string, payload map[string]any) error {
			raw, err := json.Marshal(payload)
			if err != nil {
				return err
			}
			var ann messages.GlobalModelAnnouncement
			if err := json.Unmarshal(raw, &ann); err != nil {
				return err
			}

			return svc.HandleAnnouncement(ctx, ann)
		})
		if err != nil {
			logger.Error("failed to subscribe to announcements", slog.String("error", err.Error()))

			return
		}
	}

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
		return svc.Run(ctx)
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}
