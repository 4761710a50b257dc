package commands

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jmercer/startgate/config"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "startgate",
	Short: "startgate - synchronized race-start signal network",
	Long: `startgate coordinates autonomous light/sound start devices over a
lossy half-duplex radio link, firing each unit's sequence in tight
time alignment with the others.

Hardware deployments supply a transport.RadioDriver; the built-in
commands run against the in-memory simulated medium.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("[startgate] %v", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (JSON; defaults apply when absent)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("startgate\n")
		fmt.Printf("  Version: %s\n", Version)
		fmt.Printf("  Commit:  %s\n", Commit)
	},
}
