package tendermint

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blockberries/tenderberry/logging"
)

const (
	monitorInitialBackoff = time.Second
	monitorMaxBackoff     = 8 * time.Second
)

// MonitorRPC polls the engine's RPC /status endpoint until it answers,
// backing off between attempts. It returns once the endpoint reports
// healthy or the context ends.
func (n *Node) MonitorRPC(ctx context.Context) error {
	url, err := statusURL(n.params.RPCLaddr)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 2 * time.Second}
	backoff := monitorInitialBackoff

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("building status request: %w", err)
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				n.logger.Info("engine rpc ready",
					logging.Address(url), logging.Count(attempt))
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-n.clock.After(backoff):
		}
		if backoff < monitorMaxBackoff {
			backoff *= 2
		}
	}
}

// statusURL converts the engine's "tcp://host:port" RPC listen address into
// its HTTP status endpoint.
func statusURL(rpcLaddr string) (string, error) {
	hostPort := strings.TrimPrefix(rpcLaddr, "tcp://")
	hostPort = strings.TrimPrefix(hostPort, "http://")
	if hostPort == "" {
		return "", fmt.Errorf("empty rpc address %q", rpcLaddr)
	}
	return "http://" + hostPort + "/status", nil
}
