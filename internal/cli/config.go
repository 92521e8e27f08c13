package cli

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/wsl-terminal/internal/infrastructure/config"
)

func newConfigCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration wsl-terminal would run with, after applying
environment variables such as PORT, CONTROL_ADDRESS and TERMINAL_SHELL.

Examples:
  wsl-terminal config
  wsl-terminal config --format toml
  CONTROL_REPLY_TIMEOUT=5s wsl-terminal config --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out, err := config.Render(cfg, format)
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return err
			}
			if len(out) > 0 && out[len(out)-1] != '\n' {
				_, err = cmd.OutOrStdout().Write([]byte("\n"))
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml, toml or json")
	return cmd
}
