package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	gateway    string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	_ = godotenv.Load()

	envGateway := os.Getenv("GATEWAY")
	if envGateway == "" {
		envGateway = "ws://localhost:8765/ws"
	}
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "mesh-jeopardy",
		Short: "Hacker Jeopardy trivia host for mesh networks",
	}

	cmd.PersistentFlags().StringVar(&gateway, "gateway", envGateway, "mesh gateway websocket URL")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &gateway))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}
