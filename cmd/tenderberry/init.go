package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blockberries/tenderberry/config"
)

var (
	initAgentAddress string
	initAgentName    string
	initParticipants string
	initDataDir      string
	initTransport    string
	initOverride     bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new node",
	Long: `Initialize a new Tenderberry node with a configuration file and
data directories.

This command creates:
  - config.toml: Node configuration
  - data/: Data directory for the block archive

Example:
  tenderberry init --agent-address agent_0x01 --participants agent_0x01,agent_0x02`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initAgentAddress, "agent-address", "", "address this agent signs payloads with")
	initCmd.Flags().StringVar(&initAgentName, "agent-name", "", "human-readable agent name")
	initCmd.Flags().StringVar(&initParticipants, "participants", "", "comma-separated participant addresses")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", ".", "directory for configuration and data")
	initCmd.Flags().StringVar(&initTransport, "transport", "tcp", "engine transport (tcp or grpc)")
	initCmd.Flags().BoolVar(&initOverride, "force", false, "override existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir := initDataDir
	if dataDir == "" {
		dataDir = "."
	}

	configPath := filepath.Join(dataDir, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !initOverride {
		return fmt.Errorf("config.toml already exists; use --force to override")
	}

	agentName := initAgentName
	if agentName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			agentName = "tenderberry-node"
		} else {
			agentName = hostname
		}
	}

	cfg := config.DefaultConfig()
	if initAgentAddress != "" {
		cfg.Node.AgentAddress = initAgentAddress
	}
	cfg.Node.AgentName = agentName
	if initParticipants != "" {
		cfg.Node.Participants = strings.Split(initParticipants, ",")
	}
	cfg.ABCI.Transport = config.Transport(initTransport)
	cfg.BlockStore.Backend = "leveldb"
	cfg.BlockStore.Path = filepath.Join(dataDir, "data", "blockstore")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.EnsureDataDirs(); err != nil {
		return fmt.Errorf("creating data directories: %w", err)
	}

	if err := config.WriteConfigFile(configPath, cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("Initialized Tenderberry node\n")
	fmt.Printf("  Agent:        %s (%s)\n", agentName, cfg.Node.AgentAddress)
	fmt.Printf("  Participants: %d\n", len(cfg.Node.Participants))
	fmt.Printf("  Transport:    %s\n", cfg.ABCI.Transport)
	fmt.Printf("  Config:       %s\n", configPath)
	fmt.Printf("  Data dir:     %s\n", filepath.Join(dataDir, "data"))

	return nil
}
