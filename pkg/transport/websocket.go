package transport

import (
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mercuryirc/mercury/internal/config"
	"github.com/mercuryirc/mercury/internal/logging"
	"github.com/mercuryirc/mercury/pkg/errors"
)

const wsHandshakeTimeout = 30 * time.Second

// wsConn is a Conn over an IRC-over-WebSocket gateway. Each text
// message carries one protocol line without a CR/LF terminator.
type wsConn struct {
	conn   *websocket.Conn
	logger *logging.Logger
}

// DialWebSocket connects to the gateway at server.WebSocketURL. The
// server's trust policy applies to wss:// URLs.
func DialWebSocket(server config.ServerConfig, logger *logging.Logger) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
		TLSClientConfig:  TLSConfig(server.Host, server.AcceptAllCerts),
	}

	conn, _, err := dialer.Dial(server.WebSocketURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnect, "DIAL_FAILED", "failed to connect to websocket gateway").
			WithDetails(server.WebSocketURL)
	}

	return &wsConn{conn: conn, logger: logger}, nil
}

func (c *wsConn) ReadLine() (string, error) {
	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", io.EOF
			}
			return "", err
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		text := strings.TrimRight(string(payload), "\r\n")
		c.logger.Debug("line", "dir", "in", "text", text)
		return text, nil
	}
}

func (c *wsConn) WriteLine(line string) error {
	c.logger.Debug("line", "dir", "out", "text", line)

	// the websocket framing replaces CR/LF termination
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
