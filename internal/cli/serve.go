package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"placeholder-cli/internal/api"
	"placeholder-cli/internal/fakeapi"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(app *App) *cobra.Command {
	var addr, dbPath, seedFrom string
	var noDemo bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local copy of the demo API (SQLite-backed)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = app.cfg.Serve.Addr
			}
			if !cmd.Flags().Changed("db") {
				dbPath = app.cfg.Serve.DB
			}

			runCtx, stop := signal.NotifyContext(ctx(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := fakeapi.Open(runCtx, dbPath)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			if err := seedStore(runCtx, app, st, seedFrom, !noDemo); err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return writeErr(cmd, err)
			}
			srv := &http.Server{
				Handler:           fakeapi.NewServer(st, app.log).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			app.log.Info("serving", zap.String("addr", "http://"+ln.Addr().String()), zap.String("db", dbPath))

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return writeErr(cmd, err)
			case <-runCtx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config serve.addr, 127.0.0.1:3000)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file (default in-memory)")
	cmd.Flags().StringVar(&seedFrom, "seed-from", "", "Copy all collections from this API base URL on start")
	cmd.Flags().BoolVar(&noDemo, "no-demo", false, "Start empty instead of with demo data")
	return cmd
}

// seedStore fills an empty store, from a remote API when seedFrom is set,
// otherwise with demo data when demo is true. A store with posts is left alone.
func seedStore(ctx context.Context, app *App, st *fakeapi.Store, seedFrom string, demo bool) error {
	n, err := st.Count(ctx, "posts")
	if err != nil {
		return err
	}
	switch {
	case seedFrom != "":
		c, err := api.New(seedFrom, api.WithTimeout(app.cfg.Timeout), api.WithLogger(app.log))
		if err != nil {
			return err
		}
		return fakeapi.SeedFrom(ctx, st, c, app.log)
	case n > 0 || !demo:
		return nil
	default:
		return fakeapi.SeedDemo(ctx, st)
	}
}
