// =============================================================================
// NFe to XLSX Converter - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   nfeconv serve [--port :8080]
//
// ENDPOINTS:
//   GET  /health           - liveness
//   POST /api/v1/convert   - multipart upload, returns the workbook
//   GET  /api/v1/profiles  - stored profiles
//
// =============================================================================

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/server"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP conversion service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != "" {
			appConfig.Server.Port = servePort
		}
		if appConfig.Server.Environment == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		store, profiles, err := openProfiles(false)
		if err != nil {
			return err
		}
		defer store.Close()

		srv, err := server.New(appConfig, profiles, logger.Named("server"))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "Listen address (default: server.port)")
}
