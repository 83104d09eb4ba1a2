package irc

import (
	"bufio"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercuryirc/mercury/internal/config"
	"github.com/mercuryirc/mercury/internal/logging"
	"github.com/mercuryirc/mercury/pkg/errors"
)

func testLogger() *logging.Logger {
	return &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// startServer runs script against the first accepted connection and
// returns the descriptor to dial it.
func startServer(t *testing.T, script func(conn net.Conn)) config.ServerConfig {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		script(conn)
	}()

	return config.ServerConfig{
		Host: "127.0.0.1",
		Port: ln.Addr().(*net.TCPAddr).Port,
	}
}

func waitStopped(t *testing.T, conn *Connection) {
	t.Helper()
	select {
	case <-conn.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not stop")
	}
}

func TestWelcomeLineDispatch(t *testing.T) {
	server := startServer(t, func(conn net.Conn) {
		conn.Write([]byte(":test.server 001 nick :Welcome\r\n")) //nolint:errcheck
	})

	var (
		mu        sync.Mutex
		calls     [][]string
		errCalled int
	)

	registry := NewRegistry()
	registry.RegisterNumeric(OnNumeric(1, func(line string, tokens []string, conn *Connection) {
		mu.Lock()
		calls = append(calls, tokens)
		mu.Unlock()
	}))

	conn := NewConnection(server, registry, testLogger())
	conn.SetErrorHandler(func(err error) {
		mu.Lock()
		errCalled++
		mu.Unlock()
	})

	conn.Connect()
	require.True(t, conn.Running())
	waitStopped(t, conn)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{":test.server", "001", "nick", ":Welcome"}, calls[0])
	assert.Zero(t, errCalled, "clean end-of-stream must not reach the error handler")
	assert.False(t, conn.Running())
}

func TestDispatchOrder(t *testing.T) {
	server := startServer(t, func(conn net.Conn) {
		conn.Write([]byte("PING :x\r\n")) //nolint:errcheck
	})

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) ProcessFunc {
		return func(line string, tokens []string, conn *Connection) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	registry := NewRegistry()
	registry.RegisterCommand(OnCommand("PING", record("h1")))
	registry.RegisterCommand(OnCommand("PING", record("h2")))

	conn := NewConnection(server, registry, testLogger())
	conn.Connect()
	waitStopped(t, conn)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"h1", "h2"}, order)
}

func TestMultipleKindsRouteSeparately(t *testing.T) {
	server := startServer(t, func(conn net.Conn) {
		conn.Write([]byte(":s 375 nick :- motd start\r\nNOTICE nick :hi\r\n")) //nolint:errcheck
	})

	var (
		mu       sync.Mutex
		numerics []int
		commands []string
	)

	registry := NewRegistry()
	registry.RegisterNumeric(NumericFunc(
		func(int) bool { return true },
		func(line string, tokens []string, conn *Connection) {
			mu.Lock()
			numerics = append(numerics, ParseLine(line).Numeric)
			mu.Unlock()
		},
	))
	registry.RegisterCommand(CommandFunc(
		func(string, string) bool { return true },
		func(line string, tokens []string, conn *Connection) {
			mu.Lock()
			commands = append(commands, tokens[0])
			mu.Unlock()
		},
	))

	conn := NewConnection(server, registry, testLogger())
	conn.Connect()
	waitStopped(t, conn)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{375}, numerics)
	assert.Equal(t, []string{"NOTICE"}, commands)
}

func TestWriteLineFraming(t *testing.T) {
	received := make(chan string, 1)
	server := startServer(t, func(conn net.Conn) {
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return
		}
		received <- line
	})

	conn := NewConnection(server, nil, testLogger())
	conn.Connect()
	require.True(t, conn.Running())
	defer conn.Disconnect()

	conn.WriteLine("PING 123")

	select {
	case got := <-received:
		assert.Equal(t, "PING 123\r\n", got)
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the line")
	}
}

func TestJoinChannelSendsRequestOnly(t *testing.T) {
	received := make(chan string, 1)
	server := startServer(t, func(conn net.Conn) {
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return
		}
		received <- line
	})

	conn := NewConnection(server, nil, testLogger())
	conn.Connect()
	require.True(t, conn.Running())
	defer conn.Disconnect()

	conn.JoinChannel("#test")

	select {
	case got := <-received:
		assert.Equal(t, "JOIN #test\r\n", got)
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the join request")
	}
}

func TestRegisterAsSendsNickThenUser(t *testing.T) {
	received := make(chan string, 2)
	server := startServer(t, func(conn net.Conn) {
		reader := bufio.NewReader(conn)
		for i := 0; i < 2; i++ {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			received <- line
		}
	})

	conn := NewConnection(server, nil, testLogger())
	conn.Connect()
	require.True(t, conn.Running())
	defer conn.Disconnect()

	conn.RegisterAs("guest", "guest", "Guest User")

	assert.Equal(t, "NICK guest\r\n", <-received)
	assert.Equal(t, "USER guest * * :Guest User\r\n", <-received)
}

func TestErrorHandlerIsSingleSlot(t *testing.T) {
	conn := NewConnection(config.ServerConfig{Host: "127.0.0.1", Port: 6667}, nil, testLogger())

	firstCalled := false
	var got error
	conn.SetErrorHandler(func(err error) { firstCalled = true })
	conn.SetErrorHandler(func(err error) { got = err })

	// not connected: WriteLine reports through the callback only
	conn.WriteLine("PING")

	assert.False(t, firstCalled, "replaced handler must never fire again")
	assert.ErrorIs(t, got, ErrNotConnected)
}

func TestConnectFailureReportsViaCallback(t *testing.T) {
	// grab a port that nothing listens on
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	conn := NewConnection(config.ServerConfig{Host: "127.0.0.1", Port: port}, nil, testLogger())

	var got error
	conn.SetErrorHandler(func(err error) { got = err })
	conn.Connect()

	require.Error(t, got)
	var e *errors.Error
	require.True(t, stderrors.As(got, &e))
	assert.Equal(t, errors.ErrorTypeConnect, e.Type)
	assert.False(t, conn.Running())
	waitStopped(t, conn)
}

func TestConnectWhileRunningIsReported(t *testing.T) {
	release := make(chan struct{})
	server := startServer(t, func(conn net.Conn) {
		<-release
	})

	conn := NewConnection(server, nil, testLogger())
	conn.Connect()
	require.True(t, conn.Running())

	var got error
	conn.SetErrorHandler(func(err error) { got = err })
	conn.Connect()
	assert.ErrorIs(t, got, ErrAlreadyConnected)

	close(release)
	conn.Disconnect()
	waitStopped(t, conn)
}

func TestDisconnectStopsReadLoop(t *testing.T) {
	server := startServer(t, func(conn net.Conn) {
		// hold the connection open until the client closes it
		io.Copy(io.Discard, conn) //nolint:errcheck
	})

	var (
		mu        sync.Mutex
		errCalled int
	)

	conn := NewConnection(server, nil, testLogger())
	conn.SetErrorHandler(func(err error) {
		mu.Lock()
		errCalled++
		mu.Unlock()
	})

	conn.Connect()
	require.True(t, conn.Running())

	conn.Disconnect()
	waitStopped(t, conn)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, errCalled, "a locally closed socket is a normal shutdown")
	assert.False(t, conn.Running())
}

func TestHandlerPanicDoesNotKillReadLoop(t *testing.T) {
	server := startServer(t, func(conn net.Conn) {
		conn.Write([]byte("PING :one\r\nPING :two\r\n")) //nolint:errcheck
	})

	var (
		mu   sync.Mutex
		seen []string
		got  error
	)

	registry := NewRegistry()
	registry.RegisterCommand(OnCommand("PING", func(line string, tokens []string, conn *Connection) {
		if tokens[1] == ":one" {
			panic("boom")
		}
	}))
	registry.RegisterCommand(OnCommand("PING", func(line string, tokens []string, conn *Connection) {
		mu.Lock()
		seen = append(seen, tokens[1])
		mu.Unlock()
	}))

	conn := NewConnection(server, registry, testLogger())
	conn.SetErrorHandler(func(err error) {
		mu.Lock()
		got = err
		mu.Unlock()
	})

	conn.Connect()
	waitStopped(t, conn)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{":one", ":two"}, seen, "dispatch continues past a panicking handler")

	var e *errors.Error
	require.True(t, stderrors.As(got, &e))
	assert.Equal(t, "HANDLER_PANIC", e.Code)
}

func TestStatsCountLines(t *testing.T) {
	server := startServer(t, func(conn net.Conn) {
		conn.Write([]byte(":s 001 nick :hi\r\n")) //nolint:errcheck
		// wait for one line from the client before closing
		bufio.NewReader(conn).ReadString('\n') //nolint:errcheck
	})

	conn := NewConnection(server, nil, testLogger())
	conn.Connect()
	require.True(t, conn.Running())

	conn.WriteLine("PING 1")
	waitStopped(t, conn)

	stats := conn.Stats()
	assert.Equal(t, int64(1), stats.LinesIn)
	assert.Equal(t, int64(1), stats.LinesOut)
	assert.False(t, stats.Connected)
}
