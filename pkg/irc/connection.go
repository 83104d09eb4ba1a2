package irc

import (
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"github.com/mercuryirc/mercury/internal/config"
	"github.com/mercuryirc/mercury/internal/logging"
	"github.com/mercuryirc/mercury/pkg/errors"
	"github.com/mercuryirc/mercury/pkg/transport"
)

var (
	// ErrAlreadyConnected is reported when Connect is called on a
	// connection whose read loop is still running.
	ErrAlreadyConnected = errors.New(errors.ErrorTypeConnect, "ALREADY_CONNECTED", "connection is already running")

	// ErrNotConnected is reported when an operation needs an open
	// transport and there is none.
	ErrNotConnected = errors.New(errors.ErrorTypeConnect, "NOT_CONNECTED", "connection is not open")
)

// ErrorHandler receives connect, read, and write failures. A
// Connection holds at most one; failures with no handler registered
// are dropped after logging.
type ErrorHandler func(err error)

// Connection is the object other code holds: one per server. It owns
// the transport, runs the read loop on its own goroutine, and
// dispatches each inbound line to the registry's handlers. Outgoing
// operations only transmit requests; the server's responses, routed
// through handlers, are the sole trigger for state changes elsewhere.
//
// Failures never propagate to the caller of the public operations;
// they are forwarded to the registered ErrorHandler.
type Connection struct {
	id       string
	registry *Registry
	logger   *logging.Logger
	reporter *errors.Reporter

	mu        sync.Mutex
	server    config.ServerConfig
	conn      transport.Conn
	running   bool
	done      chan struct{}
	onError   ErrorHandler
	startedAt time.Time

	linesIn  atomic.Int64
	linesOut atomic.Int64
}

// Stats is a snapshot of connection counters for observability.
type Stats struct {
	Connected bool      `json:"connected"`
	Server    string    `json:"server"`
	LinesIn   int64     `json:"lines_in"`
	LinesOut  int64     `json:"lines_out"`
	StartedAt time.Time `json:"started_at,omitzero"`
}

// NewConnection creates a connection to the given server. The registry
// is expected to be fully populated before Connect and not mutated
// afterwards.
func NewConnection(server config.ServerConfig, registry *Registry, logger *logging.Logger) *Connection {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = logging.New(logging.Config{Level: "info", Format: "text"})
	}

	id := xid.New().String()
	connLogger := logger.WithFields(map[string]any{
		"conn_id": id,
		"server":  serverTarget(server),
	})

	return &Connection{
		id:       id,
		server:   server,
		registry: registry,
		logger:   connLogger,
		reporter: errors.NewReporter(connLogger.Logger),
	}
}

// ID returns the connection's log correlation id.
func (c *Connection) ID() string {
	return c.id
}

// Server returns the server descriptor this connection dials.
func (c *Connection) Server() config.ServerConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.server
}

// SetErrorHandler replaces the error callback. At most one is active;
// setting a new one means the previous is never invoked again.
func (c *Connection) SetErrorHandler(fn ErrorHandler) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// SetAcceptAllSSLCerts switches the lenient trust policy on or off.
// Only effective before Connect; an already-open transport keeps the
// policy it was dialed with.
func (c *Connection) SetAcceptAllSSLCerts(accept bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.logger.Warn("trust policy change ignored, connection already open")
		return
	}
	c.server.AcceptAllCerts = accept
}

// Connect opens the transport and starts the read loop on its own
// goroutine, returning immediately. An open failure is forwarded to
// the error handler and leaves the connection not running. Connecting
// while already running is a caller error, reported as
// ErrAlreadyConnected.
func (c *Connection) Connect() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		c.report(ErrAlreadyConnected)
		return
	}
	c.running = true
	c.done = make(chan struct{})
	done := c.done
	server := c.server
	c.mu.Unlock()

	conn, err := transport.Dial(server, c.logger)
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(done)
		c.report(err)
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.startedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("connected", "remote", conn.RemoteAddr())
	go c.readLoop(conn, done)
}

// Disconnect closes the transport. The blocked read on the loop
// goroutine fails once the socket is closed, which drives the loop to
// its stopped state; there is no other cancellation mechanism.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		c.report(ErrNotConnected)
		return
	}

	if err := conn.Close(); err != nil {
		c.report(errors.Wrap(err, errors.ErrorTypeConnect, "CLOSE_FAILED", "failed to close connection"))
	}
}

// WriteLine sends one raw protocol line verbatim, CR/LF appended by
// the transport. The content is not validated; callers are
// responsible for protocol-legal lines. Send failures go to the error
// handler, not the caller.
func (c *Connection) WriteLine(raw string) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.report(ErrNotConnected)
		return
	}

	if err := conn.WriteLine(raw); err != nil {
		c.report(errors.Wrap(err, errors.ErrorTypeWrite, "WRITE_FAILED", "failed to send line"))
		return
	}
	c.linesOut.Add(1)
}

// JoinChannel requests membership of a channel. No local membership
// state changes here; that happens only when a handler processes the
// server's confirmation.
func (c *Connection) JoinChannel(channel string) {
	c.WriteLine("JOIN " + channel)
}

// RegisterAs requests an identity with NICK and USER. As with
// JoinChannel, the identity is not recorded locally until the server
// confirms it.
func (c *Connection) RegisterAs(nick, user, realName string) {
	c.WriteLine("NICK " + nick)
	c.WriteLine("USER " + user + " * * :" + realName)
}

// Running reports whether the read loop is active.
func (c *Connection) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Done returns a channel closed when the read loop has stopped. Before
// the first Connect it returns an already-closed channel.
func (c *Connection) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.done
}

// Stats returns a snapshot of the connection counters.
func (c *Connection) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Connected: c.running,
		Server:    serverTarget(c.server),
		LinesIn:   c.linesIn.Load(),
		LinesOut:  c.linesOut.Load(),
		StartedAt: c.startedAt,
	}
}

// readLoop consumes lines until end-of-stream or a read failure, both
// of which stop the loop for good. Dispatch is synchronous and in
// arrival order: a handler that blocks, blocks this loop.
func (c *Connection) readLoop(conn transport.Conn, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(done)
		c.logger.Debug("read loop stopped")
	}()

	for {
		line, err := conn.ReadLine()
		if err != nil {
			// a clean end-of-stream and a read on a locally closed
			// socket are normal shutdown, not reportable failures
			if !stderrors.Is(err, io.EOF) && !stderrors.Is(err, net.ErrClosed) {
				c.report(errors.Wrap(err, errors.ErrorTypeRead, "READ_FAILED", "failed to read from server"))
			}
			return
		}

		if line == "" {
			continue
		}

		c.linesIn.Add(1)
		c.dispatch(line)
	}
}

// dispatch classifies one line and invokes every applicable handler in
// registry order.
func (c *Connection) dispatch(raw string) {
	line := ParseLine(raw)

	switch line.Kind {
	case KindNumeric:
		for _, h := range c.registry.Numerics() {
			if h.AppliesTo(line.Numeric) {
				c.invoke(h.Process, line)
			}
		}
	case KindCommand:
		for _, h := range c.registry.Commands() {
			if h.AppliesTo(line.Command, line.Raw) {
				c.invoke(h.Process, line)
			}
		}
	}
}

// invoke runs one handler, recovering a panic so a misbehaving handler
// cannot take the read loop down with it.
func (c *Connection) invoke(process ProcessFunc, line Line) {
	defer func() {
		if r := recover(); r != nil {
			c.report(errors.New(errors.ErrorTypeInternal, "HANDLER_PANIC", "handler panicked during dispatch").
				WithDetails(fmt.Sprint(r)))
		}
	}()

	process(line.Raw, line.Tokens, c)
}

// report logs a failure and forwards it to the error handler, if any.
func (c *Connection) report(err error) {
	c.mu.Lock()
	fn := c.onError
	c.mu.Unlock()

	c.reporter.Report(err)
	if fn != nil {
		fn(err)
	}
}

func serverTarget(server config.ServerConfig) string {
	if server.WebSocketURL != "" {
		return server.WebSocketURL
	}
	return server.Addr()
}
