// Package cli wires the wsl-terminal command line: UI mode, the MCP tool
// front-end and configuration inspection.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/wsl-terminal/internal/domain/control"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/config"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/logging"
	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/server"
	"github.com/GriffinCanCode/wsl-terminal/internal/mcp"
)

const shutdownTimeout = 10 * time.Second

const helpText = `WSL Terminal v` + mcp.Version + `

Usage:
  wsl-terminal          Start the GUI application
  wsl-terminal --mcp    Run as MCP server (for Claude integration)

MCP Configuration (~/.claude.json):
  {"mcpServers": {"wsl-terminal": {"command": "wsl-terminal", "args": ["--mcp"]}}}
`

// NewRootCommand builds the wsl-terminal command tree.
func NewRootCommand() *cobra.Command {
	var mcpMode bool

	root := &cobra.Command{
		Use:           "wsl-terminal",
		Short:         "Tabbed terminal sessions with an agent control plane",
		Version:       mcp.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if mcpMode {
				return runMCP(cmd, cfg)
			}
			return runUI(cmd, cfg)
		},
	}
	root.Flags().BoolVar(&mcpMode, "mcp", false, "Run as MCP server on stdin/stdout")

	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			defaultHelp(cmd, args)
			return
		}
		fmt.Fprint(cmd.OutOrStdout(), helpText)
	})

	root.AddCommand(newConfigCommand())
	return root
}

// Execute runs the root command against the process arguments.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

// runMCP serves JSON-RPC on the command's stdin/stdout until EOF or a signal.
// Logs always go to stderr: stdout belongs to the protocol.
func runMCP(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Output:      "stderr",
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endpoint := control.ResolveEndpoint(cfg.Control.Network, cfg.Control.Address)
	logger.Debug("MCP server starting", zap.String("control", endpoint.String()))

	srv := mcp.NewServer(control.NewClient(endpoint), logger.Named("mcp"))
	err = srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runUI starts the control plane and the UI gateway and blocks until a
// signal arrives or the gateway fails.
func runUI(cmd *cobra.Command, cfg *config.Config) error {
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		closeErr := srv.Close()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return closeErr
	}
}
