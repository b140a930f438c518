// Maills is a language server that resolves email addresses in free-text
// documents against contact repositories (a flat contact list and/or a
// directory of vCards).
//
// The server speaks LSP over stdio:
//
//	maills --stdio
//
// Configuration is layered from ~/.config/maills/config.yaml, MAILLS_
// environment variables, and the client's initializationOptions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/maills/internal/config"
	"github.com/fyrsmithlabs/maills/internal/logging"
	"github.com/fyrsmithlabs/maills/internal/lsp"
	"github.com/fyrsmithlabs/maills/internal/server"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		stdio      bool
		configPath string
	)
	root := &cobra.Command{
		Use:           "maills",
		Short:         "Contact resolution language server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stdio {
				return fmt.Errorf("no connection mode given, e.g. --stdio")
			}
			return run(configPath)
		},
	}
	root.Flags().BoolVar(&stdio, "stdio", false, "serve LSP over stdin/stdout")
	root.Flags().StringVar(&configPath, "config", "", "config file path (default ~/.config/maills/config.yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("maills %s (%s)\n", version, gitCommit)
		},
	})
	return root
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting maills", zap.String("version", version))

	conn := lsp.NewConn(os.Stdin, os.Stdout)
	sess := server.New(conn, cfg, logger, version)
	if err := sess.Run(); err != nil {
		logger.Error("session ended with error", zap.Error(err))
		return err
	}
	logger.Info("session ended")
	return nil
}
