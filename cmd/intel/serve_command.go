package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/intel-pipeline/internal/api"
	"github.com/yegors/intel-pipeline/internal/config"
	"github.com/yegors/intel-pipeline/internal/query"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var host string
	var port int
	var dbPath string
	var table string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the anomaly API and dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(cfg *config.Config, log *logger.Logger) error {
				server := cfg.Server
				server.Host = stringOr(host, server.Host)
				if cmd.Flags().Changed("port") {
					server.Port = port
				}
				tableName := stringOr(table, cfg.Model.TableName)
				if err := config.ValidateTableName(tableName); err != nil {
					return err
				}

				queries := query.NewService(stringOr(dbPath, cfg.Paths.DBPath), tableName, log)
				router := api.NewRouter(queries, server, log)
				addr := net.JoinHostPort(server.Host, strconv.Itoa(server.Port))
				return serve(cmd.Context(), addr, router.Routes(), log)
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")
	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (default from config)")
	cmd.Flags().StringVar(&table, "table", "", "Result table name (default from config)")
	return cmd
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down
func serve(ctx context.Context, addr string, handler http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting HTTP server", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
