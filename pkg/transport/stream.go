package transport

import (
	"net"

	"github.com/ergochat/irc-go/ircreader"

	"github.com/mercuryirc/mercury/internal/logging"
)

// streamConn is a Conn over a regular stream socket (plain TCP or TLS).
type streamConn struct {
	conn   net.Conn
	reader *ircreader.Reader
	logger *logging.Logger
}

func newStreamConn(conn net.Conn, logger *logging.Logger) *streamConn {
	return &streamConn{
		conn:   conn,
		reader: ircreader.NewIRCReader(conn),
		logger: logger,
	}
}

func (c *streamConn) ReadLine() (string, error) {
	line, err := c.reader.ReadLine()
	if err != nil {
		return "", err
	}

	text := string(line)
	c.logger.Debug("line", "dir", "in", "text", text)
	return text, nil
}

func (c *streamConn) WriteLine(line string) error {
	c.logger.Debug("line", "dir", "out", "text", line)

	// net.Conn writes are unbuffered, so the line is flushed on return.
	_, err := c.conn.Write(append([]byte(line), '\r', '\n'))
	return err
}

func (c *streamConn) Close() error {
	return c.conn.Close()
}

func (c *streamConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
