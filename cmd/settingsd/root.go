package main

import (
	"strings"

	"github.com/spf13/cobra"

	"settingsd/internal/config"
	"settingsd/internal/daemonrun"
	"settingsd/internal/messages"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// configError marks a configuration file that could not be loaded.
type configError struct{ err error }

func (e *configError) Error() string { return "invalid configuration: " + e.err.Error() }

func (e *configError) Unwrap() error { return e.err }

func loadConfig(path string) (*config.Config, error) {
	cfg, _, _, err := config.Load(strings.TrimSpace(path))
	if err != nil {
		return nil, &configError{err: err}
	}
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	var (
		configFlag  string
		showVersion bool
		debug       bool
		smClientID  string
		smDisable   bool
	)

	rootCmd := &cobra.Command{
		Use:           "settingsd",
		Short:         "Desktop settings helper",
		Long:          "settingsd hosts the desktop settings subsystems for one session and keeps them in sync with the settings store.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				messages.Printer().Fprintf(cmd.OutOrStdout(), messages.Version, cmd.Root().Name(), version)
				return nil
			}
			cfg, err := loadConfig(configFlag)
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				Debug:      debug,
				SMClientID: smClientID,
				SMDisable:  smDisable,
			})
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "V", false, "Version information")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Start in debug mode (don't fork to the background)")
	rootCmd.Flags().StringVar(&smClientID, "sm-client-id", "", "Session management client ID")
	rootCmd.Flags().BoolVar(&smDisable, "sm-client-disable", false, "Disable connection to session manager")

	rootCmd.AddCommand(newSubsystemsCommand(&configFlag))
	rootCmd.AddCommand(newConfigCommand(&configFlag))

	return rootCmd
}
