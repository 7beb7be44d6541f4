package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Transport selects how the consensus engine connects to the application.
type Transport string

// Transport constants.
const (
	// TransportTCP serves the varint-framed socket protocol.
	TransportTCP Transport = "tcp"

	// TransportGRPC serves the gRPC variant of the protocol.
	TransportGRPC Transport = "grpc"
)

// ValidTransports contains all valid transports.
var ValidTransports = []Transport{TransportTCP, TransportGRPC}

// IsValid returns true if the transport is valid.
func (t Transport) IsValid() bool {
	for _, valid := range ValidTransports {
		if t == valid {
			return true
		}
	}
	return false
}

// Config is the main configuration for a tenderberry node.
type Config struct {
	Node       NodeConfig       `toml:"node"`
	ABCI       ABCIConfig       `toml:"abci"`
	Tendermint TendermintConfig `toml:"tendermint"`
	Engine     EngineConfig     `toml:"engine"`
	BlockStore BlockStoreConfig `toml:"blockstore"`
	Benchmark  BenchmarkConfig  `toml:"benchmark"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Logging    LoggingConfig    `toml:"logging"`
}

// NodeConfig contains agent identity configuration.
type NodeConfig struct {
	// AgentAddress is the address this agent signs payloads with.
	AgentAddress string `toml:"agent_address"`

	// AgentName is the human-readable agent identifier.
	AgentName string `toml:"agent_name"`

	// Participants are the addresses of all agents in the service.
	Participants []string `toml:"participants"`
}

// ABCIConfig contains the consensus-bridge server configuration.
type ABCIConfig struct {
	// ListenAddress is the address the engine dials (e.g., "0.0.0.0:26658").
	ListenAddress string `toml:"listen_address"`

	// Transport selects the protocol variant ("tcp" or "grpc").
	Transport Transport `toml:"transport"`

	// QueueSize is the capacity of the inbound request queue.
	QueueSize int `toml:"queue_size"`

	// MaxRecvMsgSize is the maximum gRPC message size to receive.
	MaxRecvMsgSize int `toml:"max_recv_msg_size"`

	// MaxSendMsgSize is the maximum gRPC message size to send.
	MaxSendMsgSize int `toml:"max_send_msg_size"`
}

// TendermintConfig contains the supervised consensus engine configuration.
type TendermintConfig struct {
	// Managed determines whether the node spawns and supervises the engine.
	Managed bool `toml:"managed"`

	// BinaryPath is the path to the engine binary.
	BinaryPath string `toml:"binary_path"`

	// Home is the engine home directory ("" uses the engine default).
	Home string `toml:"home"`

	// RPCLaddr is the engine RPC listen address.
	RPCLaddr string `toml:"rpc_laddr"`

	// P2PLaddr is the engine P2P listen address.
	P2PLaddr string `toml:"p2p_laddr"`

	// P2PSeeds is the comma-separated engine seed list.
	P2PSeeds string `toml:"p2p_seeds"`

	// CreateEmptyBlocks mirrors the engine's empty-block production flag.
	CreateEmptyBlocks bool `toml:"create_empty_blocks"`

	// StopTimeout is the grace period before terminate escalates.
	StopTimeout Duration `toml:"stop_timeout"`
}

// EngineConfig contains the round engine configuration.
type EngineConfig struct {
	// RoundTimeout bounds how long any single round may stay open.
	RoundTimeout Duration `toml:"round_timeout"`

	// ResetTimeout bounds how long a reset round may stay open.
	ResetTimeout Duration `toml:"reset_timeout"`
}

// BlockStoreConfig contains block archive configuration.
type BlockStoreConfig struct {
	// Backend is the storage backend ("leveldb", "badgerdb", "memory", or "noop").
	Backend string `toml:"backend"`

	// Path is the directory path for block storage.
	Path string `toml:"path"`
}

// BenchmarkConfig contains behaviour timing instrumentation configuration.
type BenchmarkConfig struct {
	// Enabled determines whether timing blocks are recorded.
	Enabled bool `toml:"enabled"`

	// LogDir is the directory benchmark dumps are written to.
	LogDir string `toml:"log_dir"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled determines whether metrics collection is active.
	Enabled bool `toml:"enabled"`

	// Namespace is the Prometheus metrics namespace prefix.
	Namespace string `toml:"namespace"`

	// ListenAddr is the address to serve metrics on (e.g., ":9090").
	ListenAddr string `toml:"listen_addr"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `toml:"level"`

	// Format is the log output format ("text" or "json").
	Format string `toml:"format"`

	// Output is the log output destination ("stdout", "stderr", or a file path).
	Output string `toml:"output"`
}

// Duration is a wrapper around time.Duration for TOML unmarshaling.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			AgentAddress: "agent_0",
			AgentName:    "tenderberry",
			Participants: []string{},
		},
		ABCI: ABCIConfig{
			ListenAddress:  "0.0.0.0:26658",
			Transport:      TransportTCP,
			QueueSize:      256,
			MaxRecvMsgSize: 4 * 1024 * 1024,
			MaxSendMsgSize: 4 * 1024 * 1024,
		},
		Tendermint: TendermintConfig{
			Managed:           false,
			BinaryPath:        "tendermint",
			Home:              "",
			RPCLaddr:          "tcp://0.0.0.0:26657",
			P2PLaddr:          "tcp://0.0.0.0:26656",
			P2PSeeds:          "",
			CreateEmptyBlocks: true,
			StopTimeout:       Duration(30 * time.Second),
		},
		Engine: EngineConfig{
			RoundTimeout: Duration(30 * time.Second),
			ResetTimeout: Duration(30 * time.Second),
		},
		BlockStore: BlockStoreConfig{
			Backend: "memory",
			Path:    "data/blockstore",
		},
		Benchmark: BenchmarkConfig{
			Enabled: false,
			LogDir:  "/logs",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			Namespace:  "tenderberry",
			ListenAddr: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadConfig loads configuration from a TOML file.
// Missing values are filled with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validation errors.
var (
	ErrEmptyAgentAddress        = errors.New("agent_address cannot be empty")
	ErrEmptyAgentName           = errors.New("agent_name cannot be empty")
	ErrEmptyListenAddress       = errors.New("listen_address cannot be empty")
	ErrInvalidTransport         = errors.New("transport must be 'tcp' or 'grpc'")
	ErrInvalidQueueSize         = errors.New("queue_size must be positive")
	ErrInvalidRecvMsgSize       = errors.New("max_recv_msg_size must be positive")
	ErrInvalidSendMsgSize       = errors.New("max_send_msg_size must be positive")
	ErrEmptyBinaryPath          = errors.New("binary_path cannot be empty when managed")
	ErrEmptyRPCLaddr            = errors.New("rpc_laddr cannot be empty when managed")
	ErrEmptyP2PLaddr            = errors.New("p2p_laddr cannot be empty when managed")
	ErrInvalidStopTimeout       = errors.New("stop_timeout must be positive when managed")
	ErrInvalidRoundTimeout      = errors.New("round_timeout must be positive")
	ErrInvalidResetTimeout      = errors.New("reset_timeout must be positive")
	ErrInvalidBlockStoreBackend = errors.New("blockstore backend must be one of: leveldb, badgerdb, memory, noop")
	ErrEmptyBlockStorePath      = errors.New("blockstore path cannot be empty")
	ErrEmptyBenchmarkLogDir     = errors.New("benchmark log_dir cannot be empty when enabled")
	ErrEmptyMetricsNamespace    = errors.New("metrics namespace cannot be empty when enabled")
	ErrEmptyMetricsListenAddr   = errors.New("metrics listen_addr cannot be empty when enabled")
	ErrInvalidLogLevel          = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("log format must be 'text' or 'json'")
	ErrEmptyLogOutput           = errors.New("log output cannot be empty")
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Node.Validate(); err != nil {
		return fmt.Errorf("node config: %w", err)
	}
	if err := c.ABCI.Validate(); err != nil {
		return fmt.Errorf("abci config: %w", err)
	}
	if err := c.Tendermint.Validate(); err != nil {
		return fmt.Errorf("tendermint config: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if err := c.BlockStore.Validate(); err != nil {
		return fmt.Errorf("blockstore config: %w", err)
	}
	if err := c.Benchmark.Validate(); err != nil {
		return fmt.Errorf("benchmark config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate checks the node configuration for errors.
func (c *NodeConfig) Validate() error {
	if c.AgentAddress == "" {
		return ErrEmptyAgentAddress
	}
	if c.AgentName == "" {
		return ErrEmptyAgentName
	}
	return nil
}

// Validate checks the ABCI server configuration for errors.
func (c *ABCIConfig) Validate() error {
	if c.ListenAddress == "" {
		return ErrEmptyListenAddress
	}
	if !c.Transport.IsValid() {
		return ErrInvalidTransport
	}
	if c.QueueSize <= 0 {
		return ErrInvalidQueueSize
	}
	if c.MaxRecvMsgSize <= 0 {
		return ErrInvalidRecvMsgSize
	}
	if c.MaxSendMsgSize <= 0 {
		return ErrInvalidSendMsgSize
	}
	return nil
}

// Validate checks the consensus engine configuration for errors.
func (c *TendermintConfig) Validate() error {
	if !c.Managed {
		return nil
	}
	if c.BinaryPath == "" {
		return ErrEmptyBinaryPath
	}
	if c.RPCLaddr == "" {
		return ErrEmptyRPCLaddr
	}
	if c.P2PLaddr == "" {
		return ErrEmptyP2PLaddr
	}
	if c.StopTimeout.Duration() <= 0 {
		return ErrInvalidStopTimeout
	}
	return nil
}

// Validate checks the round engine configuration for errors.
func (c *EngineConfig) Validate() error {
	if c.RoundTimeout.Duration() <= 0 {
		return ErrInvalidRoundTimeout
	}
	if c.ResetTimeout.Duration() <= 0 {
		return ErrInvalidResetTimeout
	}
	return nil
}

// Validate checks the block store configuration for errors.
func (c *BlockStoreConfig) Validate() error {
	switch c.Backend {
	case "leveldb", "badgerdb", "memory", "noop":
		// Valid backends
	default:
		return ErrInvalidBlockStoreBackend
	}
	if c.Backend == "leveldb" || c.Backend == "badgerdb" {
		if c.Path == "" {
			return ErrEmptyBlockStorePath
		}
	}
	return nil
}

// Validate checks the benchmark configuration for errors.
func (c *BenchmarkConfig) Validate() error {
	if c.Enabled && c.LogDir == "" {
		return ErrEmptyBenchmarkLogDir
	}
	return nil
}

// Validate checks the metrics configuration for errors.
func (c *MetricsConfig) Validate() error {
	if c.Enabled {
		if c.Namespace == "" {
			return ErrEmptyMetricsNamespace
		}
		if c.ListenAddr == "" {
			return ErrEmptyMetricsListenAddr
		}
	}
	return nil
}

// Validate checks the logging configuration for errors.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return ErrInvalidLogLevel
	}

	switch c.Format {
	case "text", "json":
		// Valid formats
	default:
		return ErrInvalidLogFormat
	}

	if c.Output == "" {
		return ErrEmptyLogOutput
	}

	return nil
}

// WriteConfigFile writes the configuration to a TOML file.
func WriteConfigFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}

// EnsureDataDirs creates the data directories specified in the configuration.
func (c *Config) EnsureDataDirs() error {
	dirs := []string{
		c.BlockStore.Path,
	}
	if c.Benchmark.Enabled {
		dirs = append(dirs, c.Benchmark.LogDir)
	}
	if c.Tendermint.Home != "" {
		dirs = append(dirs, c.Tendermint.Home)
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	return nil
}
