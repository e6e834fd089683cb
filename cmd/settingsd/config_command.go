package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"settingsd/internal/config"
	"settingsd/internal/messages"
)

func newConfigCommand(configFlag *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigSampleCommand())
	configCmd.AddCommand(newConfigShowCommand(configFlag))
	return configCmd
}

func newConfigSampleCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the annotated sample configuration",
		Long:  "Write the annotated sample configuration to --path, or print it when --path is -.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "-" {
				fmt.Fprint(cmd.OutOrStdout(), config.SampleConfig())
				return nil
			}
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			messages.Printer().Fprintf(cmd.OutOrStdout(), messages.SampleWritten, target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file (- for stdout)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolved, exists, err := config.Load(strings.TrimSpace(*configFlag))
			if err != nil {
				return &configError{err: err}
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Configuration file: %s\n", resolved)
			} else {
				fmt.Fprintf(out, "Configuration file: %s (not found, using defaults)\n", resolved)
			}
			fmt.Fprintf(out, "Bus name: %s\n", cfg.Instance.BusName)
			fmt.Fprintf(out, "Settings service: %s %s\n", cfg.Xfconf.Service, cfg.Xfconf.Path)
			fmt.Fprintf(out, "Session manager: %s\n", cfg.Session.ManagerService)
			fmt.Fprintf(out, "Autostart entry: %s\n", cfg.Autostart.FileName)
			fmt.Fprintf(out, "Log: %s (%s, %s)\n", cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
}
