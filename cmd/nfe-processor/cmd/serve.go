package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-processor/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxBodyBytes int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for NF-e processing.

The API provides endpoints for:
  - POST /api/v1/nfe/parse     - Parse an NF-e
  - POST /api/v1/nfe/validate  - Parse and validate an NF-e
  - POST /api/v1/nfe/difal     - DIFAL for an NF-e
  - POST /api/v1/nfe/export    - NF-e as XLSX or CSV
  - POST /api/v1/difal         - DIFAL from JSON values
  - POST /api/v1/mva           - Adjusted MVA
  - POST /api/v1/info          - Detect file format
  - GET  /api/v1/rates         - Rate table in use
  - GET  /health               - Health check

Examples:
  # Start server on default port
  nfe-processor serve

  # Start on a custom address with a custom rate table
  nfe-processor serve --address :9090 --rates aliquotas.yaml

  # Start in debug mode
  nfe-processor serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (env: NFE_SERVER_ADDR, default :8080)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 2*time.Minute, "HTTP write timeout")
	serveCmd.Flags().Int64Var(&maxBodyBytes, "max-body", 10<<20, "Maximum request body size in bytes")
}

func runServe(cmd *cobra.Command, args []string) error {
	table, err := rateTable()
	if err != nil {
		return err
	}

	config := &server.Config{
		Address:      serverAddr,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		MaxBodyBytes: maxBodyBytes,
		Debug:        serverDebug,
		Rates:        table,
	}

	srv := server.NewServer(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting server on %s\n", serverAddr)
	if err := srv.RunContext(ctx); err != nil {
		return err
	}
	fmt.Println("Server stopped")
	return nil
}
