package main

import (
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"github.com/alimikegami/ticket-booking/payment-callback-service/config"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/app"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/infrastructure/database/postgres"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	conf := config.CreateNewConfig()
	if err := conf.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	a := app.App{Config: conf}

	if conf.LedgerConfig.Backend == config.LedgerBackendPostgres {
		db, err := postgres.GetDBInstance(conf.PostgreSQLConfig.DBUsername, conf.PostgreSQLConfig.DBPassword, conf.PostgreSQLConfig.DBHost, conf.PostgreSQLConfig.DBPort, conf.PostgreSQLConfig.DBName)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		a.DB = db
	}

	done := make(chan error, 1)
	go func() {
		done <- a.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	case <-quit:
		if err := a.StopServer(); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
		<-done
	}
}
