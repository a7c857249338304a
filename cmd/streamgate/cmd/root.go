// Package cmd provides the CLI commands for streamgate.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/streamgate/streamgate/internal/config"
	"github.com/streamgate/streamgate/internal/domain/child"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "streamgate",
	Short: "streamgate bridges a local MCP child process to HTTP clients",
	Long: `streamgate runs a single child process speaking line-delimited
JSON-RPC 2.0 over stdio, and exposes it to remote HTTP clients through one
multiplexing endpoint that serves both batch JSON responses and
server-sent event streams.

Quick start:
  1. Create a config file: streamgate.yaml
  2. Run: streamgate serve

Configuration:
  Config is loaded from streamgate.yaml in the current directory,
  $HOME/.streamgate/, or /etc/streamgate/.

  Environment variables can override config values with the STREAMGATE_
  prefix. Example: STREAMGATE_SERVER_HTTP_ADDR=:9090

Commands:
  serve       Start the gateway
  version     Print version information`,
}

// Execute runs the root command. When the run failed because the
// supervised child process exited, the gateway exits with that same
// code, falling back to 1 when no exit code could be recovered.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeForError(err))
	}
}

func exitCodeForError(err error) int {
	var exitErr *child.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./streamgate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
