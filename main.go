package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/OV1-Kenobi/satnam-pub-sub005/cmd/dealer"
	"github.com/OV1-Kenobi/satnam-pub-sub005/cmd/server"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/util"
)

func main() {
	configureLogger()

	rootCmd := &cobra.Command{
		Use:   "satnamd",
		Short: "Threshold signing service for sovereign family banking",
	}

	rootCmd.AddCommand(server.New())
	rootCmd.AddCommand(dealer.New())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}

func configureLogger() {
	level, err := zerolog.ParseLevel(util.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if util.GetEnvAsBool("LOG_PRETTY", false) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
