// edgepipe runs pipeline graphs and talks to running instances.
//
// Usage:
//
//	edgepipe serve [--config edgepipe.yaml] [--pipeline doc.json] [--start]
//	edgepipe start|stop|ping [--addr http://localhost:8093]
//	edgepipe export [-o doc.json] | import doc.json
//	edgepipe save NAME | load NAME | list | delete NAME
//	edgepipe types
//	edgepipe plan doc.json
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	serverAddr string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "edgepipe",
	Short: "Run and control pipeline graphs of frame and message nodes",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML settings file")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:8093", "Control server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Control request timeout")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(startCmd, stopCmd, pingCmd, exportCmd, importCmd)
	rootCmd.AddCommand(saveCmd, loadCmd, listCmd, deleteCmd)
	rootCmd.AddCommand(typesCmd, planCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
