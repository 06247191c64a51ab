package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/phuslu/log"
	"github.com/steppen0mad/Pulse/internal/client"
	"github.com/steppen0mad/Pulse/internal/protocol"
)

type Config struct {
	ConnectAddr4 string `envconfig:"PULSE_CONNECT_ADDR4" default:"127.0.0.1:7777"`
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

// erringMain runs a headless client: it connects, idles in place and
// logs what it sees. Rendering and input capture belong to the game
// shell, which calls the same Client API from its frame loop.
func erringMain() error {
	config, err := loadConfig()
	if err != nil {
		return fmt.Errorf("could not process config: %w", err)
	}

	logger := configureLogger()

	c := client.NewClient(logger)
	c.OnConnected = func(playerID uint32) {
		logger.Info().Msgf("joined as player %d", playerID)
	}
	c.OnDisconnected = func() {
		logger.Info().Msg("session over")
	}
	c.OnEntityCreated = func(entityID uint32, entityType uint8, position protocol.Vec3) {
		logger.Info().Msgf("entity %d (type %d) at (%.1f, %.1f, %.1f)",
			entityID, entityType, position.X, position.Y, position.Z)
	}
	c.OnEntityDestroyed = func(entityID uint32) {
		logger.Info().Msgf("entity %d gone", entityID)
	}

	if err := c.ConnectAddr(config.ConnectAddr4); err != nil {
		return fmt.Errorf("could not connect: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-signalChan
		logger.Info().Msgf("received %v signal", sig)
		cancel()
	}()

	ticker := time.NewTicker(time.Second / protocol.TickRate)
	defer ticker.Stop()
	statusEvery := time.NewTicker(time.Second)
	defer statusEvery.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Disconnect()
			return nil

		case <-ticker.C:
			c.Update(protocol.TickInterval)
			if !c.IsConnected() && !c.IsConnecting() {
				return fmt.Errorf("connection lost")
			}

		case <-statusEvery.C:
			if !c.IsConnected() {
				continue
			}
			local := c.LocalState()
			logger.Info().Msgf(
				"tick %d, %d players, at (%.2f, %.2f, %.2f)",
				c.ServerTick(), c.PlayerCount(),
				local.Position.X, local.Position.Y, local.Position.Z,
			)
			for id, remote := range c.InterpolatedRemotePlayers() {
				logger.Debug().Msgf(
					"  player %d at (%.2f, %.2f, %.2f)",
					id, remote.Position.X, remote.Position.Y, remote.Position.Z,
				)
			}
		}
	}
}

func main() {
	if err := erringMain(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
