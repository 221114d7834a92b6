// Package cli wires the pbwatch command line: a REPL for interactive
// stock lookups plus subcommands for watchlist management.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mkurata/pbwatch/internal/client"
)

var rootCmd = &cobra.Command{
	Use:   "pbwatch",
	Short: "Premium Bandai stock monitor client",
	Long: `pbwatch talks to a running pbwatch API server. Without a subcommand it
starts an interactive prompt where each entered URL is checked immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := &REPL{
			In:  cmd.InOrStdin(),
			Out: cmd.OutOrStdout(),
			API: newClient(),
		}
		return r.Run(cmd.Context())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("api", "http://localhost:8080", "pbwatch API base URL")
	rootCmd.PersistentFlags().String("api-key", "", "API key sent as X-API-Key")
	rootCmd.PersistentFlags().String("timeout", "15s", "per-request timeout")
	viper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(searchCmd, watchCmd, importCmd)
	watchCmd.AddCommand(watchAddCmd, watchLsCmd)
}

func init() {
	viper.SetConfigName("pbwatch.config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")

	viper.SetEnvPrefix("PBWATCH")
	viper.AutomaticEnv()
}

// initConfig reads the config file when one exists; flags and env cover
// the rest.
func initConfig() {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "config file error: %v\n", err)
		}
	}
}

func newClient() *client.Client {
	timeout, err := time.ParseDuration(viper.GetString("timeout"))
	if err != nil {
		timeout = 15 * time.Second
	}
	return client.New(viper.GetString("api"), viper.GetString("api-key"), timeout)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
