package main

import (
	"os"
	"os/signal"
	"syscall"

	pkg "git.solsynth.dev/hypernet/attendance/pkg/internal"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/database"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/grpc"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/http"
	"git.solsynth.dev/hypernet/attendance/pkg/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewSource(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Sessions left open by the previous process can never be settled
	if count, err := services.EndOrphanSessions(nil); err != nil {
		log.Error().Err(err).Msg("An error occurred when ending orphan sessions...")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("Ended sessions left open by the previous run.")
	}

	// Meeting backends and liveness sessions
	services.SetupProviders()
	services.SetupSessionHub()

	backend, err := services.GetProvider()
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when resolving meeting provider...")
	}
	recorder := services.RecordEvents(backend.Events(), services.Hub)

	// Server
	server := http.NewServer()
	go server.Listen()

	grpcServer := grpc.NewGrpc()
	go func() {
		if err := grpcServer.Listen(); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when starting grpc server...")
		}
	}()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 1m", services.SweepStaleSessions)
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.Start()

	// Messages
	log.Info().Msgf("Attendance v%s is started...", pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("Attendance v%s is quitting...", pkg.AppVersion)

	quartz.Stop()
	if err := server.Shutdown(); err != nil {
		log.Error().Err(err).Msg("An error occurred when shutting down server...")
	}
	grpcServer.Stop()

	for _, id := range services.Hub.Running() {
		if _, err := services.Hub.Close(id); err != nil {
			log.Error().Err(err).Str("session", id).Msg("An error occurred when settling session on quit...")
		}
	}
	recorder.Close()
}
