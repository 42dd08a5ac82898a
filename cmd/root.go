package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gazeguard/gazeguard-go/cmd/benchmark"
	"github.com/gazeguard/gazeguard-go/cmd/watch"
	"github.com/gazeguard/gazeguard-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gazeguard",
		Short: "GazeGuard screen privacy monitor",
		Long:  "Watch the camera feed for unauthorized observers and obscure the screen while a threat is present.",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	rootCmd.AddCommand(
		watch.Command(settings),
		benchmark.Command(settings),
		configCommand(settings),
	)

	return rootCmd
}

// configCommand prints the effective configuration.
func configCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := conf.DumpYAML(settings)
			if err != nil {
				return err
			}
			cmd.Print(out)
			return nil
		},
	}
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
