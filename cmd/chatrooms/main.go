package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/comigor/chatrooms/internal/logger"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.L.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "chatrooms",
		Short:         "Persona chat rooms backed by an OpenAI-compatible completion endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(&logLevel), newMCPCmd(&logLevel))
	return root
}
