package main

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

var (
	configPath string
	envFile    string
)

func main() {
	root := &cobra.Command{
		Use:          "venuescout",
		Short:        "Map happy-hour venues from an event table and a places service",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Credentials file loaded into the environment before config")

	root.AddCommand(serveCmd())
	root.AddCommand(markersCmd())
	root.AddCommand(neighborhoodsCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
