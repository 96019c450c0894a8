package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/edbgstack/edbgstack/docs"
	"github.com/edbgstack/edbgstack/pkg/adapter"
	"github.com/edbgstack/edbgstack/pkg/bridge"
	"github.com/edbgstack/edbgstack/pkg/config"
	"github.com/edbgstack/edbgstack/pkg/httpapi"
	"github.com/edbgstack/edbgstack/pkg/stack"
)

// @title           Embedded Debugger Bridge Admin API
// @version         1.0
// @description     Health, stack introspection, and traffic counters for a running edbgd daemon

// @host      localhost:8081
// @BasePath  /api/v1
// @schemes   http

// disconnectNotifier is implemented by adapters that can report transport
// loss; matched structurally so main doesn't need to import pkg/adapter's
// concrete types.
type disconnectNotifier interface {
	Disconnected() <-chan error
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/edbgstack/edbgstack.db)")
	stackFlag := flag.String("stack", "", "Stack description override (default: active profile's)")
	listen := flag.String("listen", "", "Bridge listen host override")
	port := flag.Int("port", 0, "Bridge listen port override (default 19026)")
	adminAddr := flag.String("admin-addr", ":8081", "Admin HTTP API listen address")
	adapterType := flag.String("adapter", "", "Adapter type override: serial, stdio, stdin")
	serialPort := flag.String("serial-port", "", "Serial port path override")
	drop := flag.Duration("drop", 0, "Boot-noise drop window override (serial adapter only)")
	flag.Parse()

	if *drop > 0 {
		adapter.DropWindow = *drop
	}

	ctx := context.Background()

	database, err := config.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()
	log.Info().Str("path", database.Path()).Msg("database opened")

	if err := database.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	needsBootstrap, err := database.NeedsBootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to check bootstrap status")
	}
	if needsBootstrap {
		log.Info().Msg("first run detected, bootstrapping database...")
		if err := database.Bootstrap(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap database")
		}
		log.Info().Msg("database bootstrapped successfully")
	}

	profile, err := database.Profiles().GetActive(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load active profile")
	}

	if *adapterType != "" {
		profile.AdapterType = *adapterType
	}
	if *serialPort != "" {
		profile.AdapterArg = *serialPort
	}
	if *listen != "" {
		profile.BridgeHost = *listen
	}
	if *port != 0 {
		profile.BridgePort = *port
	}

	description := profile.Stack
	if *stackFlag != "" {
		description = *stackFlag
	}
	description = fmt.Sprintf("%s,%s=%s", description, profile.AdapterType, profile.AdapterArg)

	log.Info().
		Str("profile", profile.Name).
		Str("stack", description).
		Msg("building protocol stack")

	st, err := stack.BuildStack(description)
	if err != nil {
		log.Fatal().Err(err).Str("stack", description).Msg("failed to build protocol stack")
	}

	var connected atomic.Bool
	connected.Store(true)
	st.Walk(func(l stack.Layer) {
		dn, ok := l.(disconnectNotifier)
		if !ok {
			return
		}
		go func() {
			err := <-dn.Disconnected()
			log.Warn().Err(err).Msg("adapter disconnected")
			connected.Store(false)
		}()
	})

	timeout := time.Duration(profile.TimeoutMs) * time.Millisecond
	sched := stack.NewScheduler(st, timeout, timeout/10)

	schedCtx, schedCancel := context.WithCancel(ctx)
	go sched.Run(schedCtx)

	br := bridge.New(st)
	if strings.Contains(description, "pubterm") {
		pubAddr := fmt.Sprintf("%s:%d", profile.BridgeHost, profile.BridgePort+1)
		go func() {
			if err := br.ServePublish(schedCtx, pubAddr); err != nil {
				log.Error().Err(err).Msg("pub endpoint failed")
			}
		}()
	}

	router := httpapi.NewRouter(st, description, connected.Load)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutting down...")
		schedCancel()
		if err := br.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close bridge")
		}
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
		os.Exit(0)
	}()

	go func() {
		log.Info().Str("address", *adminAddr).Msg("starting admin API")
		if err := router.Run(*adminAddr); err != nil {
			log.Error().Err(err).Msg("admin API failed")
		}
	}()

	bridgeAddr := fmt.Sprintf("%s:%d", profile.BridgeHost, profile.BridgePort)
	log.Info().Str("address", bridgeAddr).Msg("starting bridge")
	if err := br.Serve(ctx, bridgeAddr); err != nil {
		log.Fatal().Err(err).Msg("bridge failed")
	}
}
