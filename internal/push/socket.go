package push

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"regexp"

	"github.com/go-zeromq/zmq4"
)

var tcpAddrPattern = regexp.MustCompile(`^tcp://([^:/]+):(\d+)$`)

// Socket is a connection-oriented ZeroMQ PUSH socket. There is no
// acknowledgment protocol: success means the transport accepted the
// message, not that the remote worker processed it.
type Socket struct {
	sock zmq4.Socket
}

// resolveEndpoint checks that the endpoint's host resolves and swaps in
// the loopback address when it does not, so startup never fails on a
// missing hostname. Non-tcp endpoints pass through untouched.
func resolveEndpoint(ctx context.Context, address string, logger *slog.Logger) string {
	m := tcpAddrPattern.FindStringSubmatch(address)
	if m == nil {
		return address
	}
	host, port := m[1], m[2]
	if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
		logger.Warn("push: host did not resolve, falling back to loopback", "host", host, "error", err)
		host = "127.0.0.1"
	}
	return fmt.Sprintf("tcp://%s:%s", host, port)
}

// DialPush resolves the endpoint's host and connects a PUSH socket to it.
func DialPush(ctx context.Context, address string, logger *slog.Logger) (*Socket, error) {
	endpoint := resolveEndpoint(ctx, address, logger)

	sock := zmq4.NewPush(ctx)
	if err := sock.Dial(endpoint); err != nil {
		return nil, fmt.Errorf("dial push socket %s: %w", endpoint, err)
	}
	logger.Info("push: connected", "endpoint", endpoint)
	return &Socket{sock: sock}, nil
}

func (s *Socket) Send(payload []byte) error {
	return s.sock.Send(zmq4.NewMsg(payload))
}

func (s *Socket) Close() error {
	return s.sock.Close()
}
