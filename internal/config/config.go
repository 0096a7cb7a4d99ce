package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`

	TenderServiceFee uint64 `yaml:"tender_service_fee"`
	BidServiceFee    uint64 `yaml:"bid_service_fee"`
	PlatformWallet   string `yaml:"platform_wallet"`

	Admin      string   `yaml:"admin"`
	Government []string `yaml:"government,omitempty"`
	Pausers    []string `yaml:"pausers,omitempty"`

	GenesisBalances map[string]uint64 `yaml:"genesis_balances,omitempty"`

	// SnapshotEveryOps writes a snapshot after that many audited operations.
	// Zero disables periodic snapshots; a final one is written on shutdown.
	SnapshotEveryOps int `yaml:"snapshot_every_ops"`

	DisableDB bool `yaml:"disable_db"`

	// Offsite mirrors snapshots and closeout archives to an S3-compatible
	// bucket when enabled. Uploads are best-effort; local files stay the
	// durability baseline.
	Offsite OffsiteConfig `yaml:"offsite"`
}

type OffsiteConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region,omitempty"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix,omitempty"`
	Workers         int    `yaml:"workers,omitempty"`
	QueueCapacity   int    `yaml:"queue_capacity,omitempty"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		ListenAddr:       ":8080",
		DataDir:          "./data",
		TenderServiceFee: 10,
		BidServiceFee:    5,
		PlatformWallet:   "PLATFORM",
		Admin:            "ADMIN",
		SnapshotEveryOps: 1000,
	}
}

func (c *Config) Normalize() {
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.PlatformWallet = strings.TrimSpace(c.PlatformWallet)
	c.Admin = strings.TrimSpace(c.Admin)
	c.Government = trimAll(c.Government)
	c.Pausers = trimAll(c.Pausers)
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	c.Offsite.Endpoint = strings.TrimSpace(c.Offsite.Endpoint)
	c.Offsite.Bucket = strings.TrimSpace(c.Offsite.Bucket)
	c.Offsite.Prefix = strings.Trim(strings.TrimSpace(c.Offsite.Prefix), "/")
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.PlatformWallet == "" {
		return fmt.Errorf("platform_wallet required")
	}
	if c.Admin == "" {
		return fmt.Errorf("admin required")
	}
	if c.SnapshotEveryOps < 0 {
		return fmt.Errorf("snapshot_every_ops must be >= 0")
	}
	if c.Offsite.Enabled {
		if c.Offsite.Endpoint == "" || c.Offsite.Bucket == "" {
			return fmt.Errorf("offsite.endpoint and offsite.bucket required when enabled")
		}
		if c.Offsite.AccessKeyID == "" || c.Offsite.SecretAccessKey == "" {
			return fmt.Errorf("offsite credentials required when enabled")
		}
	}
	seen := map[string]struct{}{}
	for _, id := range c.Government {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate government identity %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
