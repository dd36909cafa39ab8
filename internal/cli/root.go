package cli

import (
	"github.com/spf13/cobra"
)

const version = "1.4.0"

var (
	cfgFile  string
	logLevel string
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "agentdeck",
	Short: "AgentDeck - local control hub for AI agents and plugins",
	Long: `AgentDeck is the local control hub behind the desktop shell. It hosts
the plugin system (discovery, manifest verification, trust-on-first-use
approval), the global settings document, the change-request plan engine,
and the HTTP gateway the shell talks to.`,
	Version: version,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.agentdeck/agentdeck.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version.
func GetVersion() string {
	return version
}
