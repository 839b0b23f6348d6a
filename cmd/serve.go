package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/server"
	"github.com/spigell/interview-coach/internal/transcript"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve interview sessions over HTTP",
	Long: "serve exposes the interview over an HTTP API. The browser uploads a resume and " +
		"recorded answers; questions and evaluations come back as WAV audio.",
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func runServe(_ *cobra.Command, _ []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, logger := setup()

	svc, err := buildServices(ctx, config, logger)
	if err != nil {
		fatalStartup(logger, err)
	}

	var exporter *transcript.Exporter
	if config.Export.Auto {
		exporter = svc.exporter
	}

	srv := server.New(svc.controller, svc.generator, svc.generator, exporter, config.Server, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("http server stopped", zap.Error(err))
	}
}
