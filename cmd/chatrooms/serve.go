package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comigor/chatrooms/internal/logger"
	"github.com/comigor/chatrooms/internal/session"
	"github.com/comigor/chatrooms/internal/transport/httpapi"
)

func newServeCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat room HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*logLevel, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()

			sessions := session.NewManager(a.rooms, a.gateway, a.policy)
			e := httpapi.NewServer(httpapi.NewHandler(a.rooms, sessions, a.incidents))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serverAddr := fmt.Sprintf("%s:%s", a.cfg.Server.Host, a.cfg.Server.Port)
			errCh := make(chan error, 1)
			go func() {
				logger.L.Info("starting server", "address", serverAddr)
				errCh <- e.Start(serverAddr)
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.L.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}
