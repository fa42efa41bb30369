// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/accelerometer_bridge/internal/app"
	"github.com/relabs-tech/accelerometer_bridge/internal/config"
)

var version = "dev"

const defaultConfigPath = "accelerometer_bridge.yaml"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "accelerometerd",
		Short: "Accelerometer bridge for the plugin runtime",
		Long: `accelerometerd exposes the device accelerometer as the Accelerometer
plugin: one-shot reads, continuous measurement events, permission
queries and pause/resume handling, served over HTTP and websockets.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default $"+config.EnvPath+" or "+defaultConfigPath+")")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Log.Level)
			log.Info().Str("version", version).Str("source", cfg.Sensor.Source).Msg("starting accelerometer bridge")

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.RunServe(ctx, cfg, version, log)
		},
	}

	var (
		bridgeURL string
		useMQTT   bool
	)
	console := &cobra.Command{
		Use:   "console",
		Short: "Print live measurements from a running bridge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Log.Level)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if useMQTT {
				if cfg.MQTT.Broker == "" || cfg.MQTT.MeasurementTopic == "" {
					return errors.New("--mqtt needs mqtt.broker and mqtt.measurement_topic in the config")
				}
				return app.RunConsoleMQTT(ctx, cfg.MQTT.Broker, cfg.MQTT.ClientID+"-console",
					cfg.MQTT.MeasurementTopic, cmd.OutOrStdout(), log)
			}
			return app.RunConsole(ctx, bridgeURL, cmd.OutOrStdout(), log)
		},
	}
	console.Flags().StringVar(&bridgeURL, "url", "http://localhost:8080", "bridge base URL")
	console.Flags().BoolVar(&useMQTT, "mqtt", false, "read measurements from the MQTT measurement topic")

	root.AddCommand(serve, console)

	if err := fang.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the explicit path, else the environment override, else
// the default file. A missing default file falls back to the built-in mock
// configuration.
func loadConfig(explicit string) (*config.Config, error) {
	if explicit != "" {
		return config.Load(explicit)
	}
	path := config.Path(defaultConfigPath)
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == defaultConfigPath {
		return config.Default(), nil
	}
	return cfg, err
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().
		Logger()
}
