package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-credential-broker/broker"
	"github.com/jrsteele09/go-credential-broker/internal/config"
	"github.com/jrsteele09/go-credential-broker/oauthclient"
	"github.com/jrsteele09/go-credential-broker/providers"
	"github.com/jrsteele09/go-credential-broker/redisrepo"
	"github.com/jrsteele09/go-credential-broker/server"
	"github.com/jrsteele09/go-credential-broker/token"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	configureLogging(c)
	displayAppname(c.GetAppName())

	ctx := context.Background()
	store, err := redisrepo.New(ctx, redisrepo.Options{
		Addr:        c.GetRedisAddr(),
		Password:    c.GetRedisPassword(),
		DB:          c.GetRedisDB(),
		KeyPrefix:   c.GetRedisKeyPrefix(),
		DialTimeout: c.GetRedisDialTimeout(),
	})
	if err != nil {
		return fmt.Errorf("redisrepo.New: %w", err)
	}
	defer store.Close()

	registry := providers.Default()
	tokenManager := token.New(store, registry,
		oauthclient.New(oauthclient.WithTimeout(c.GetUpstreamTimeout())),
		token.WithRefreshBuffer(c.GetRefreshBuffer()),
	)

	brokerService, err := broker.NewService(
		broker.Repos{Tenants: store.Tenants(), Credentials: store, Sessions: store.Sessions()},
		tokenManager,
		registry,
		broker.WithSessionTTL(c.GetSessionTTL()),
		broker.WithSessionIDLength(c.GetSessionIDLength()),
	)
	if err != nil {
		return fmt.Errorf("broker.NewService: %w", err)
	}

	httpHandler, err := server.New(c, server.Dependencies{
		Broker:      brokerService,
		Credentials: store,
		Tenants:     store.Tenants(),
		Registry:    registry,
		AuthStates:  store.AuthStates(),
		Health:      store,
	})
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: httpHandler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func configureLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("Server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
