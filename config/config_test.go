package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)

	// Node defaults
	require.Equal(t, "agent_0", cfg.Node.AgentAddress)
	require.Equal(t, "tenderberry", cfg.Node.AgentName)
	require.Empty(t, cfg.Node.Participants)

	// ABCI defaults
	require.Equal(t, "0.0.0.0:26658", cfg.ABCI.ListenAddress)
	require.Equal(t, TransportTCP, cfg.ABCI.Transport)
	require.Equal(t, 256, cfg.ABCI.QueueSize)
	require.Equal(t, 4*1024*1024, cfg.ABCI.MaxRecvMsgSize)
	require.Equal(t, 4*1024*1024, cfg.ABCI.MaxSendMsgSize)

	// Tendermint defaults
	require.False(t, cfg.Tendermint.Managed)
	require.Equal(t, "tendermint", cfg.Tendermint.BinaryPath)
	require.Equal(t, "tcp://0.0.0.0:26657", cfg.Tendermint.RPCLaddr)
	require.Equal(t, "tcp://0.0.0.0:26656", cfg.Tendermint.P2PLaddr)
	require.True(t, cfg.Tendermint.CreateEmptyBlocks)
	require.Equal(t, 30*time.Second, cfg.Tendermint.StopTimeout.Duration())

	// Engine defaults
	require.Equal(t, 30*time.Second, cfg.Engine.RoundTimeout.Duration())
	require.Equal(t, 30*time.Second, cfg.Engine.ResetTimeout.Duration())

	// BlockStore defaults
	require.Equal(t, "memory", cfg.BlockStore.Backend)
	require.Equal(t, "data/blockstore", cfg.BlockStore.Path)

	// Benchmark defaults
	require.False(t, cfg.Benchmark.Enabled)
	require.Equal(t, "/logs", cfg.Benchmark.LogDir)

	// Metrics defaults
	require.False(t, cfg.Metrics.Enabled)
	require.Equal(t, "tenderberry", cfg.Metrics.Namespace)

	// Logging defaults
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
	require.Equal(t, "stderr", cfg.Logging.Output)
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.NoError(t, err)
}

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[node]
agent_address = "0xAlice"
agent_name = "elcollectooorr"
participants = ["0xAlice", "0xBob", "0xCharlie", "0xDora"]

[abci]
listen_address = "127.0.0.1:36658"
transport = "grpc"
queue_size = 512

[tendermint]
managed = true
binary_path = "/usr/local/bin/tendermint"
rpc_laddr = "tcp://127.0.0.1:36657"
p2p_laddr = "tcp://127.0.0.1:36656"
p2p_seeds = "id1@10.0.0.1:26656"
create_empty_blocks = false
stop_timeout = "45s"

[engine]
round_timeout = "15s"
reset_timeout = "20s"

[blockstore]
backend = "badgerdb"
path = "data/blocks"

[benchmark]
enabled = true
log_dir = "/tmp/benchmarks"

[logging]
level = "debug"
format = "json"
output = "stdout"
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	require.Equal(t, "0xAlice", cfg.Node.AgentAddress)
	require.Equal(t, "elcollectooorr", cfg.Node.AgentName)
	require.Len(t, cfg.Node.Participants, 4)
	require.Equal(t, "127.0.0.1:36658", cfg.ABCI.ListenAddress)
	require.Equal(t, TransportGRPC, cfg.ABCI.Transport)
	require.Equal(t, 512, cfg.ABCI.QueueSize)
	require.True(t, cfg.Tendermint.Managed)
	require.Equal(t, "/usr/local/bin/tendermint", cfg.Tendermint.BinaryPath)
	require.Equal(t, "id1@10.0.0.1:26656", cfg.Tendermint.P2PSeeds)
	require.False(t, cfg.Tendermint.CreateEmptyBlocks)
	require.Equal(t, 45*time.Second, cfg.Tendermint.StopTimeout.Duration())
	require.Equal(t, 15*time.Second, cfg.Engine.RoundTimeout.Duration())
	require.Equal(t, 20*time.Second, cfg.Engine.ResetTimeout.Duration())
	require.Equal(t, "badgerdb", cfg.BlockStore.Backend)
	require.True(t, cfg.Benchmark.Enabled)
	require.Equal(t, "/tmp/benchmarks", cfg.Benchmark.LogDir)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)

	// Unset sections keep defaults
	require.Equal(t, 4*1024*1024, cfg.ABCI.MaxRecvMsgSize)
	require.Equal(t, "tenderberry", cfg.Metrics.Namespace)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.toml")
	require.Error(t, err)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	err := os.WriteFile(configPath, []byte("not [valid toml"), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(configPath)
	require.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[abci]
transport = "carrier-pigeon"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(configPath)
	require.ErrorIs(t, err, ErrInvalidTransport)
}

func TestTransportIsValid(t *testing.T) {
	require.True(t, TransportTCP.IsValid())
	require.True(t, TransportGRPC.IsValid())
	require.False(t, Transport("udp").IsValid())
	require.False(t, Transport("").IsValid())
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty agent address",
			mutate:  func(c *Config) { c.Node.AgentAddress = "" },
			wantErr: ErrEmptyAgentAddress,
		},
		{
			name:    "empty agent name",
			mutate:  func(c *Config) { c.Node.AgentName = "" },
			wantErr: ErrEmptyAgentName,
		},
		{
			name:    "empty listen address",
			mutate:  func(c *Config) { c.ABCI.ListenAddress = "" },
			wantErr: ErrEmptyListenAddress,
		},
		{
			name:    "zero queue size",
			mutate:  func(c *Config) { c.ABCI.QueueSize = 0 },
			wantErr: ErrInvalidQueueSize,
		},
		{
			name:    "negative recv msg size",
			mutate:  func(c *Config) { c.ABCI.MaxRecvMsgSize = -1 },
			wantErr: ErrInvalidRecvMsgSize,
		},
		{
			name: "managed engine without binary",
			mutate: func(c *Config) {
				c.Tendermint.Managed = true
				c.Tendermint.BinaryPath = ""
			},
			wantErr: ErrEmptyBinaryPath,
		},
		{
			name: "managed engine without stop timeout",
			mutate: func(c *Config) {
				c.Tendermint.Managed = true
				c.Tendermint.StopTimeout = 0
			},
			wantErr: ErrInvalidStopTimeout,
		},
		{
			name:    "zero round timeout",
			mutate:  func(c *Config) { c.Engine.RoundTimeout = 0 },
			wantErr: ErrInvalidRoundTimeout,
		},
		{
			name:    "zero reset timeout",
			mutate:  func(c *Config) { c.Engine.ResetTimeout = 0 },
			wantErr: ErrInvalidResetTimeout,
		},
		{
			name:    "unknown blockstore backend",
			mutate:  func(c *Config) { c.BlockStore.Backend = "rocksdb" },
			wantErr: ErrInvalidBlockStoreBackend,
		},
		{
			name: "leveldb without path",
			mutate: func(c *Config) {
				c.BlockStore.Backend = "leveldb"
				c.BlockStore.Path = ""
			},
			wantErr: ErrEmptyBlockStorePath,
		},
		{
			name: "benchmark enabled without log dir",
			mutate: func(c *Config) {
				c.Benchmark.Enabled = true
				c.Benchmark.LogDir = ""
			},
			wantErr: ErrEmptyBenchmarkLogDir,
		},
		{
			name: "metrics enabled without namespace",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Namespace = ""
			},
			wantErr: ErrEmptyMetricsNamespace,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMemoryBackendNeedsNoPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlockStore.Backend = "memory"
	cfg.BlockStore.Path = ""
	require.NoError(t, cfg.Validate())
}

func TestDurationRoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)

	text, err := d.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "1m30s", string(text))

	var parsed Duration
	err = parsed.UnmarshalText(text)
	require.NoError(t, err)
	require.Equal(t, d, parsed)
}

func TestDurationUnmarshalInvalid(t *testing.T) {
	var d Duration
	err := d.UnmarshalText([]byte("not-a-duration"))
	require.Error(t, err)
}

func TestWriteConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.Node.AgentAddress = "0xWriter"

	err := WriteConfigFile(configPath, cfg)
	require.NoError(t, err)

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.Equal(t, "0xWriter", loaded.Node.AgentAddress)
}

func TestEnsureDataDirs(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.BlockStore.Path = filepath.Join(tmpDir, "blocks")
	cfg.Benchmark.Enabled = true
	cfg.Benchmark.LogDir = filepath.Join(tmpDir, "logs")

	err := cfg.EnsureDataDirs()
	require.NoError(t, err)

	info, err := os.Stat(cfg.BlockStore.Path)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	info, err = os.Stat(cfg.Benchmark.LogDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
