package main

import (
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/comigor/chatrooms/internal/session"
	"github.com/comigor/chatrooms/internal/transport/mcpserver"
)

func newMCPCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the chat rooms as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			a, err := newApp(*logLevel, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			s := session.New(a.rooms, a.gateway, a.policy)
			return server.ServeStdio(mcpserver.NewServer(mcpserver.NewTools(a.rooms, s), version))
		},
	}
}
