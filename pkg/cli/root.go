// Package cli implements the mockhost command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mockhost/mockhost/pkg/logging"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	logLevel  string
	logFormat string
	json      bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "mockhost",
		Short: "mockhost serves configurable mock HTTP APIs",
		Long: `mockhost serves mock HTTP endpoints from YAML or JSON configuration.

Each endpoint has response variants selected by rules over the request's
headers, query, body and path parameters. Variants can render path
parameters into their body, add latency and fail at a configured rate.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config, else info)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: text or json (default from config, else text)")
	root.PersistentFlags().BoolVar(&g.json, "json", false, "Output command results in JSON format")

	root.AddCommand(
		newServeCmd(g),
		newValidateCmd(g),
		newResolveCmd(g),
		newSchemaCmd(),
		newVersionCmd(g),
	)
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if code := Run(); code != 0 {
		os.Exit(code)
	}
}

// Run executes the root command with the process arguments and returns the
// exit code.
func Run() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// logger builds the operational logger. Flags win over the configured
// values.
func (g *globalFlags) logger(w io.Writer, cfgLevel, cfgFormat string) *slog.Logger {
	level, format := cfgLevel, cfgFormat
	if g.logLevel != "" {
		level = g.logLevel
	}
	if g.logFormat != "" {
		format = g.logFormat
	}
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(level),
		Format: logging.ParseFormat(format),
		Output: w,
	})
}

// writeJSON writes indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
