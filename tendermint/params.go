// Package tendermint supervises an external consensus engine process: it
// builds the init and node argv, spawns and stops the binary, pipes its
// output into the structured logger, and probes its RPC for liveness.
package tendermint

import (
	"strconv"
	"strings"

	"github.com/blockberries/tenderberry/config"
)

// Params holds the launch parameters of the consensus engine process.
type Params struct {
	// BinaryPath locates the engine binary.
	BinaryPath string

	// ProxyApp is the application address the engine dials back to.
	ProxyApp string

	// RPCLaddr is the engine RPC listen address.
	RPCLaddr string

	// P2PLaddr is the engine P2P listen address.
	P2PLaddr string

	// P2PSeeds lists seed nodes, joined comma-separated on the argv.
	P2PSeeds []string

	// CreateEmptyBlocks mirrors the engine's empty-block production flag.
	CreateEmptyBlocks bool

	// Home is the engine home directory; empty uses the engine default.
	Home string

	// UseGRPC selects the gRPC application transport.
	UseGRPC bool
}

// DefaultParams returns the conventional local single-node parameters.
func DefaultParams() Params {
	return Params{
		BinaryPath:        "tendermint",
		ProxyApp:          "tcp://127.0.0.1:26658",
		RPCLaddr:          "tcp://127.0.0.1:26657",
		P2PLaddr:          "tcp://0.0.0.0:26656",
		CreateEmptyBlocks: true,
	}
}

// ParamsFromConfig derives engine parameters from the node configuration.
// The proxy app address and transport follow the ABCI server settings.
func ParamsFromConfig(cfg *config.Config) Params {
	p := DefaultParams()
	if cfg.Tendermint.BinaryPath != "" {
		p.BinaryPath = cfg.Tendermint.BinaryPath
	}
	p.ProxyApp = "tcp://" + cfg.ABCI.ListenAddress
	if cfg.Tendermint.RPCLaddr != "" {
		p.RPCLaddr = cfg.Tendermint.RPCLaddr
	}
	if cfg.Tendermint.P2PLaddr != "" {
		p.P2PLaddr = cfg.Tendermint.P2PLaddr
	}
	if cfg.Tendermint.P2PSeeds != "" {
		p.P2PSeeds = strings.Split(cfg.Tendermint.P2PSeeds, ",")
	}
	p.CreateEmptyBlocks = cfg.Tendermint.CreateEmptyBlocks
	p.Home = cfg.Tendermint.Home
	p.UseGRPC = cfg.ABCI.Transport == config.TransportGRPC
	return p
}

// BuildInitArgs returns the argv for the one-shot init subcommand.
func (p Params) BuildInitArgs() []string {
	args := []string{"init"}
	if p.Home != "" {
		args = append(args, "--home", p.Home)
	}
	return args
}

// BuildNodeArgs returns the argv for the long-running node subcommand.
func (p Params) BuildNodeArgs() []string {
	args := []string{
		"node",
		"--proxy_app=" + p.ProxyApp,
		"--rpc.laddr=" + p.RPCLaddr,
		"--p2p.laddr=" + p.P2PLaddr,
		"--p2p.seeds=" + strings.Join(p.P2PSeeds, ","),
		"--consensus.create_empty_blocks=" + strconv.FormatBool(p.CreateEmptyBlocks),
	}
	if p.UseGRPC {
		args = append(args, "--abci=grpc")
	}
	if p.Home != "" {
		args = append(args, "--home", p.Home)
	}
	return args
}
