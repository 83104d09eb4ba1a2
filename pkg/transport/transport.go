// Package transport provides the line-oriented connections the IRC core
// runs over. A Conn abstracts away the distinction between a raw stream
// socket (plain TCP or TLS) and an IRC-over-WebSocket gateway, which is
// message-oriented rather than stream-oriented.
package transport

import (
	"net"

	"github.com/mercuryirc/mercury/internal/config"
	"github.com/mercuryirc/mercury/internal/logging"
	"github.com/mercuryirc/mercury/pkg/errors"
)

// Conn is one line-oriented protocol connection.
type Conn interface {
	// ReadLine blocks until the next protocol line arrives and returns
	// it with the trailing CR/LF stripped. End-of-stream is io.EOF.
	ReadLine() (string, error)

	// WriteLine frames line for the wire, writes, and flushes.
	WriteLine(line string) error

	// Close closes the underlying connection. A blocked ReadLine on
	// another goroutine fails once the connection is closed.
	Close() error

	// RemoteAddr returns the remote endpoint, for logging.
	RemoteAddr() string
}

// Dial opens a connection to the given server: a WebSocket gateway if
// server.WebSocketURL is set, TLS if server.SSL is set, plain TCP
// otherwise. AcceptAllCerts selects the lenient trust policy.
func Dial(server config.ServerConfig, logger *logging.Logger) (Conn, error) {
	if server.WebSocketURL != "" {
		return DialWebSocket(server, logger)
	}

	var (
		conn net.Conn
		err  error
	)

	if server.SSL {
		conn, err = dialTLS(server)
	} else {
		conn, err = net.Dial("tcp", server.Addr())
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnect, "DIAL_FAILED", "failed to connect to server").
			WithDetails(server.Addr())
	}

	return newStreamConn(conn, logger), nil
}
