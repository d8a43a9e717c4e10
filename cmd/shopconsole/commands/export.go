package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ncobase/shopconsole/ctxutil"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command, running one export in the
// foreground
func NewExportCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the bot users collection and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(configFile)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, _ = ctxutil.EnsureTraceID(ctx)

			ctrl := a.backup.Controller()
			if err := ctrl.Start(ctx); err != nil {
				return err
			}
			runErr := ctrl.Pending().Wait(ctx)

			snap := ctrl.Status(context.Background())
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("export failed: %w", runErr)
			}
			return nil
		},
	}

	addConfigFlag(cmd, &configFile)
	return cmd
}
