package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stepgrid/pkg/api"
	"github.com/matzehuels/stepgrid/pkg/cache"
	"github.com/matzehuels/stepgrid/pkg/document"
)

// shutdownTimeout bounds how long in-flight requests may finish after an
// interrupt.
const shutdownTimeout = 5 * time.Second

// serveCommand creates the command that serves a document over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve <doc.json>",
		Short: "Serve a document over the read-only HTTP API",
		Long: `Serve exposes the document's steps, plans, entities and timeline issues
as JSON over HTTP:

  GET  /healthz
  GET  /document
  GET  /steps
  GET  /steps/{step}/plan     (?format=text for the text grid)
  GET  /entities
  GET  /entities/{id}
  GET  /issues
  POST /validate

The address and timeouts default to the [server] section of the config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			d, err := document.Import(args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()
			runner.Keyer = cache.NewScopedKeyer(nil, "doc:"+d.ID+":")

			srv, err := api.New(d, runner, api.Options{Binding: c.resolver(d), Logger: logger})
			if err != nil {
				return err
			}

			cfg := c.Config.Server
			if addr == "" {
				addr = cfg.Addr
			}
			httpServer := &http.Server{
				Addr:         addr,
				Handler:      srv.Handler(),
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
			}

			printSuccess("Serving %s", d)
			printKeyValue("Address", addr)
			return listenUntilDone(ctx, httpServer)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the plan cache")
	return cmd
}

// listenUntilDone runs srv until ctx ends, then shuts it down gracefully.
func listenUntilDone(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	printInfo("Server stopped")
	return nil
}
