package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mercuryirc/mercury/internal/config"
	"github.com/mercuryirc/mercury/internal/logging"
	"github.com/mercuryirc/mercury/pkg/irc"
)

func main() {
	var (
		configPath  = pflag.String("config", "", "path to config file (json or yaml)")
		serverHost  = pflag.String("server", "", "IRC server host")
		serverPort  = pflag.Int("port", 0, "IRC server port")
		useSSL      = pflag.Bool("ssl", false, "connect with TLS")
		insecure    = pflag.Bool("insecure", false, "accept any server certificate (for self-signed test servers)")
		wsURL       = pflag.String("websocket-url", "", "IRC-over-WebSocket gateway URL")
		nick        = pflag.String("nick", "mercury", "nickname to request")
		user        = pflag.String("user", "mercury", "username for registration")
		realName    = pflag.String("realname", "Mercury IRC", "real name for registration")
		channels    = pflag.StringSlice("join", nil, "channels to join once registered")
		logLevel    = pflag.String("log-level", "", "log level (debug, info, warn, error)")
		logFormat   = pflag.String("log-format", "", "log format (text, json, pretty)")
		monitorAddr = pflag.String("monitor-addr", "", "debug status endpoint listen address")
	)
	pflag.Parse()

	cfg, err := config.Load(config.LoadOptions{Path: *configPath})
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *serverHost != "" {
		cfg.Server.Host = *serverHost
	}
	if *serverPort != 0 {
		cfg.Server.Port = *serverPort
	}
	if *useSSL {
		cfg.Server.SSL = true
	}
	if *wsURL != "" {
		cfg.Server.WebSocketURL = *wsURL
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}
	if *monitorAddr != "" {
		cfg.Monitor.Addr = *monitorAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New(cfg.Logging)

	// Handlers are external collaborators; the core only routes lines
	// to them. These are the minimal set for an interactive session.
	registry := irc.NewRegistry()

	registry.RegisterCommand(irc.OnCommand("PING", func(line string, tokens []string, conn *irc.Connection) {
		if len(tokens) > 1 {
			conn.WriteLine("PONG " + tokens[1])
		} else {
			conn.WriteLine("PONG")
		}
	}))

	joinChannels := *channels
	registry.RegisterNumeric(irc.OnNumeric(1, func(line string, tokens []string, conn *irc.Connection) {
		// the server confirmed registration, now request the channels
		for _, channel := range joinChannels {
			conn.JoinChannel(channel)
		}
	}))

	registry.RegisterCommand(irc.CommandFunc(
		func(command, line string) bool { return true },
		func(line string, tokens []string, conn *irc.Connection) {
			fmt.Println(line)
		},
	))

	conn := irc.NewConnection(cfg.Server, registry, logger)
	conn.SetErrorHandler(func(err error) {
		logger.Error("connection error", "error", err)
	})
	conn.SetAcceptAllSSLCerts(*insecure || cfg.Server.AcceptAllCerts)

	conn.Connect()
	if !conn.Running() {
		os.Exit(1)
	}

	if cfg.Monitor.Addr != "" {
		monitor := irc.NewMonitor(conn, logger)
		if err := monitor.Start(cfg.Monitor.Addr); err != nil {
			log.Fatalf("failed to start monitor: %v", err)
		}
		defer monitor.Close()
	}

	conn.RegisterAs(*nick, *user, *realName)

	input := make(chan string)
	go func() {
		defer close(input)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- scanner.Text()
		}
	}()

	for {
		select {
		case <-conn.Done():
			logger.Info("server closed the connection")
			return

		case line, ok := <-input:
			if !ok || line == "/quit" {
				conn.Disconnect()
				<-conn.Done()
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			conn.WriteLine(line)
		}
	}
}
