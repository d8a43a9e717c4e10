package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ncobase/shopconsole/config"
	"github.com/ncobase/shopconsole/internal/server"
	"github.com/ncobase/shopconsole/logging/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the console API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(configFile)
			if err != nil {
				return err
			}
			defer a.close()

			config.Watch(func(cfg *config.Config) {
				logger.StdLogger().SetLevel(logrus.Level(cfg.Logger.Level))
				logger.Info(context.Background(), "Configuration reloaded", "level", cfg.Logger.Level)
			})

			srv := server.New(server.Options{
				Config:   a.cfg,
				Data:     a.data,
				Backup:   a.backup,
				Events:   a.events,
				Gatherer: a.registry,
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err := <-errCh:
				return err
			case sig := <-quit:
				logger.Info(context.Background(), "Shutting down server", "signal", sig.String())
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	addConfigFlag(cmd, &configFile)
	return cmd
}
