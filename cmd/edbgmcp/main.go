package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edbgstack/edbgstack/pkg/bridge"
	"github.com/edbgstack/edbgstack/pkg/mcpserver"
)

func main() {
	// Logging must go to stderr — stdout is the MCP transport.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	defaultBridgeAddr := fmt.Sprintf("localhost:%d", bridge.DefaultPort)
	bridgeAddr := flag.String("bridge-addr", defaultBridgeAddr, "Address of a running edbgd daemon's REQ/REP bridge")
	adminAddr := flag.String("admin-addr", "http://localhost:8081", "Base URL of a running edbgd daemon's admin API")
	timeout := flag.Duration("timeout", 5*time.Second, "Timeout for each bridge request")
	flag.Parse()

	server := mcpserver.NewServer(*bridgeAddr, *adminAddr, *timeout)

	log.Info().
		Str("bridge", *bridgeAddr).
		Str("admin", *adminAddr).
		Msg("starting MCP server on stdio")

	if err := server.ServeStdio(); err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
