package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/phuslu/log"
	"github.com/steppen0mad/Pulse/internal/host"
)

type Config struct {
	HostAddr4 string `envconfig:"PULSE_HOST_ADDR4" default:"0.0.0.0:7777"`
}

func loadConfig() (*Config, error) {
	config := new(Config)
	if err := envconfig.Process("", config); err != nil {
		return nil, err
	}
	return config, nil
}

func configureLogger() *log.Logger {
	logger := log.DefaultLogger

	logger.Caller = 1
	logger.TimeFormat = "15:04:05"
	logger.Writer = &log.ConsoleWriter{
		ColorOutput:    true,
		QuoteString:    true,
		EndWithMessage: true,
	}

	return &logger
}

func erringMain() error {
	config, err := loadConfig()
	if err != nil {
		return fmt.Errorf("could not process config: %w", err)
	}

	logger := configureLogger()

	h := host.NewHost(logger)
	if err := h.StartAddr(config.HostAddr4); err != nil {
		return fmt.Errorf("could not start host: %w", err)
	}

	// headless listen server: the host machine occupies player 0 at
	// the spawn even though nothing drives it
	h.LocalPlayer()

	h.OnPlayerConnected = func(playerID uint32) {
		logger.Info().Msgf("player %d joined (%d online)", playerID, h.PlayerCount())
	}
	h.OnPlayerDisconnected = func(playerID uint32) {
		logger.Info().Msgf("player %d left (%d online)", playerID, h.PlayerCount())
	}

	wg := new(sync.WaitGroup)
	ctx, cancel := context.WithCancel(context.Background())

	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = h.Run(ctx)
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-signalChan
	logger.Info().Msgf("received %v signal", sig)

	cancel()
	wg.Wait()
	if runErr != nil {
		return fmt.Errorf("host run failed: %w", runErr)
	}

	return nil
}

func main() {
	if err := erringMain(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
