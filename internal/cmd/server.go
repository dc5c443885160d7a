package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"gorm.io/gorm"

	"github.com/certmint/certmint/internal/config"
	"github.com/certmint/certmint/internal/logging"
	"github.com/certmint/certmint/internal/repeat"
	"github.com/certmint/certmint/internal/server/data"
	"github.com/certmint/certmint/metrics"
)

func newServerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the certmint server",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openDatabase(opts)
			if err != nil {
				return err
			}

			if cfg.LogLevel != "" {
				if err := logging.SetLevel(cfg.LogLevel); err != nil {
					return err
				}
			}

			if err := config.Import(db, cfg); err != nil {
				return fmt.Errorf("importing config: %w", err)
			}

			// construct the registries up front so a bad authority or
			// destination block fails startup instead of the first request
			if _, err := config.BuildIssuerRegistry(cfg.Authorities); err != nil {
				return err
			}
			if _, err := config.BuildDestinationRegistry(cfg.Destinations); err != nil {
				return err
			}

			repeat.Start(cmd.Context(), time.Hour, func(context.Context) {
				expirySweep(db)
			})

			addr := cfg.MetricsAddr
			if addr == "" {
				addr = ":9090"
			}

			return runServer(cmd.Context(), addr, metrics.NewHandler(metrics.NewRegistry(db)))
		},
	}
}

// expirySweep logs a warning for each issuer with certificates nearing the
// end of their validity, so the fleet report surfaces in the server log as
// well as the metrics endpoint.
func expirySweep(db *gorm.DB) {
	stats, err := data.CountCertificatesBy(db, data.StatsOptions{Metric: "not_after"})
	if err != nil {
		logging.Errorf("expiry sweep: %v", err)
		return
	}

	for i, issuer := range stats.Labels {
		logging.Warnf("%d certificates issued by %q expire soon", stats.Values[i], issuer)
	}
}

var runServer = func(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logging.Infof("metrics listening on %s", addr)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
