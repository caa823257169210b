package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config sidecar configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Worker    WorkerConfig    `yaml:"worker"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Prover    ProverConfig    `yaml:"prover"`
	Verifier  VerifierConfig  `yaml:"verifier"`
	EigenDA   EigenDAConfig   `yaml:"eigenda"`
	SRS       SRSConfig       `yaml:"srs"`
	Cache     CacheConfig     `yaml:"cache"`
	NATS      NATSConfig      `yaml:"nats"`
}

// ServerConfig HTTP / JSON-RPC listener
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// JWTSecret enables bearer auth on the JSON-RPC endpoint when set.
	JWTSecret string `yaml:"jwt_secret"`
	// MetricsAllowedIPs are allowed to scrape /metrics besides localhost.
	MetricsAllowedIPs []string `yaml:"metrics_allowed_ips"`
	// TrustedProxies may set X-Forwarded-For. Empty means the peer address
	// is always the client address.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// DatabaseConfig Database configuration
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // postgres | sqlite
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// WorkerConfig proof pipeline loop
type WorkerConfig struct {
	IdleBackoff          time.Duration `yaml:"idle_backoff"`
	ResolveRetryInterval time.Duration `yaml:"resolve_retry_interval"`
	// ResolveMaxWait bounds how long a request waits for its certificate.
	// Zero waits forever.
	ResolveMaxWait   time.Duration `yaml:"resolve_max_wait"`
	MaxStoreFailures int           `yaml:"max_store_failures"`
	// Preflight runs the verifier contract via eth_call before proving.
	Preflight bool `yaml:"preflight"`
}

// ResolverConfig JSON-RPC endpoint that turns blob ids into certificates
type ResolverConfig struct {
	RPCEndpoint string `yaml:"rpc_endpoint"`
	Method      string `yaml:"method"`
}

// RetrieverConfig eigenda-proxy used to fetch payloads
type RetrieverConfig struct {
	ProxyURL string        `yaml:"proxy_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ProverConfig proving backend
type ProverConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// VerifierConfig on-chain cert verifier
type VerifierConfig struct {
	RPCEndpoint     string `yaml:"rpc_endpoint"`
	VerifierAddress string `yaml:"verifier_address"`
	CallerAddress   string `yaml:"caller_address"`
}

type EigenDAConfig struct {
	// RelayKeys restricts retrieval to certificates served by these relays.
	// Empty accepts any relay.
	RelayKeys   []uint32 `yaml:"relay_keys"`
	PayloadForm string   `yaml:"payload_form"` // coeff | eval
}

type SRSConfig struct {
	G1Path    string `yaml:"g1_path"`
	G2Path    string `yaml:"g2_path"`
	NumPoints uint64 `yaml:"num_points"`
	CacheDir  string `yaml:"cache_dir"`
}

type CacheConfig struct {
	QueryResults int `yaml:"query_results"`
}

// NATSConfig NATSMessage server configuration
type NATSConfig struct {
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	Timeout       time.Duration `yaml:"timeout"`
}

// LoadConfig reads the YAML file at configPath, applies SIDECAR_* environment
// overrides and defaults, and validates the result.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := overrideFromEnv(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3100
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Worker.IdleBackoff == 0 {
		cfg.Worker.IdleBackoff = 2 * time.Second
	}
	if cfg.Worker.ResolveRetryInterval == 0 {
		cfg.Worker.ResolveRetryInterval = time.Second
	}
	if cfg.Worker.MaxStoreFailures == 0 {
		cfg.Worker.MaxStoreFailures = 10
	}
	if cfg.Resolver.Method == "" {
		cfg.Resolver.Method = "eigenda_getCertificate"
	}
	if cfg.Retriever.Timeout == 0 {
		cfg.Retriever.Timeout = 60 * time.Second
	}
	if cfg.Prover.Timeout == 0 {
		cfg.Prover.Timeout = 600 * time.Second
	}
	if cfg.Verifier.RPCEndpoint == "" {
		cfg.Verifier.RPCEndpoint = cfg.Resolver.RPCEndpoint
	}
	if cfg.EigenDA.PayloadForm == "" {
		cfg.EigenDA.PayloadForm = "coeff"
	}
	if cfg.SRS.NumPoints == 0 {
		cfg.SRS.NumPoints = 1 << 16
	}
	if cfg.Cache.QueryResults == 0 {
		cfg.Cache.QueryResults = 4096
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "sidecar.proof"
	}
	if cfg.NATS.Timeout == 0 {
		cfg.NATS.Timeout = 5 * time.Second
	}
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Resolver.RPCEndpoint == "" {
		errs = append(errs, errors.New("resolver.rpc_endpoint is required"))
	}
	if c.Retriever.ProxyURL == "" {
		errs = append(errs, errors.New("retriever.proxy_url is required"))
	}
	if c.Prover.BaseURL == "" {
		errs = append(errs, errors.New("prover.base_url is required"))
	}
	if c.SRS.G1Path == "" || c.SRS.G2Path == "" {
		errs = append(errs, errors.New("srs.g1_path and srs.g2_path are required"))
	}
	if c.Worker.Preflight && !common.IsHexAddress(c.Verifier.VerifierAddress) {
		errs = append(errs, fmt.Errorf("verifier.verifier_address %q is not an address", c.Verifier.VerifierAddress))
	}
	if c.Verifier.CallerAddress != "" && !common.IsHexAddress(c.Verifier.CallerAddress) {
		errs = append(errs, fmt.Errorf("verifier.caller_address %q is not an address", c.Verifier.CallerAddress))
	}
	if c.Worker.ResolveMaxWait < 0 {
		errs = append(errs, errors.New("worker.resolve_max_wait must not be negative"))
	}
	return errors.Join(errs...)
}

// ListenAddr host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func overrideFromEnv(cfg *Config) error {
	str := map[string]*string{
		"SIDECAR_SERVER_HOST":      &cfg.Server.Host,
		"SIDECAR_JWT_SECRET":       &cfg.Server.JWTSecret,
		"SIDECAR_DATABASE_DRIVER":  &cfg.Database.Driver,
		"SIDECAR_DATABASE_DSN":     &cfg.Database.DSN,
		"SIDECAR_LOG_LEVEL":        &cfg.Log.Level,
		"SIDECAR_RPC_ENDPOINT":     &cfg.Resolver.RPCEndpoint,
		"SIDECAR_PROXY_URL":        &cfg.Retriever.ProxyURL,
		"SIDECAR_PROVER_URL":       &cfg.Prover.BaseURL,
		"SIDECAR_VERIFIER_RPC":     &cfg.Verifier.RPCEndpoint,
		"SIDECAR_VERIFIER_ADDRESS": &cfg.Verifier.VerifierAddress,
		"SIDECAR_PAYLOAD_FORM":     &cfg.EigenDA.PayloadForm,
		"SIDECAR_SRS_G1_PATH":      &cfg.SRS.G1Path,
		"SIDECAR_SRS_G2_PATH":      &cfg.SRS.G2Path,
		"SIDECAR_NATS_URL":         &cfg.NATS.URL,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("SIDECAR_SERVER_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIDECAR_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = p
	}

	durations := map[string]*time.Duration{
		"SIDECAR_IDLE_BACKOFF":           &cfg.Worker.IdleBackoff,
		"SIDECAR_RESOLVE_RETRY_INTERVAL": &cfg.Worker.ResolveRetryInterval,
		"SIDECAR_RESOLVE_MAX_WAIT":       &cfg.Worker.ResolveMaxWait,
		"SIDECAR_PROVER_TIMEOUT":         &cfg.Prover.Timeout,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("SIDECAR_PREFLIGHT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SIDECAR_PREFLIGHT: %w", err)
		}
		cfg.Worker.Preflight = b
	}

	if v := os.Getenv("SIDECAR_RELAY_KEYS"); v != "" {
		var keys []uint32
		for _, part := range strings.Split(v, ",") {
			k, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
			if err != nil {
				return fmt.Errorf("SIDECAR_RELAY_KEYS: %w", err)
			}
			keys = append(keys, uint32(k))
		}
		cfg.EigenDA.RelayKeys = keys
	}
	return nil
}
