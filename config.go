package fedlearn

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

type Config struct {
	Aggregator AggregatorConfig `toml:"aggregator"`
	Agent      AgentConfig      `toml:"agent"`
}

type AggregatorConfig struct {
	Port              string        `toml:"port"`
	ExpectedAgents    int           `toml:"expected_agents"`
	DynamicMembership bool          `toml:"dynamic_membership"`
	SweepInterval     time.Duration `toml:"sweep_interval"`
	MQTTAddress       string        `toml:"mqtt_address"`
}

type AgentConfig struct {
	Name        string        `toml:"name"`
	Port        string        `toml:"port"`
	Address     string        `toml:"address"`
	ServerURL   string        `toml:"server_url"`
	LeaseTTL    time.Duration `toml:"lease_ttl"`
	DataSamples int           `toml:"data_samples"`
	DataSeed    int64         `toml:"data_seed"`
	MQTTAddress string        `toml:"mqtt_address"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
