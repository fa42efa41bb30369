// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/accelerometer_bridge/internal/bridge"
	"github.com/relabs-tech/accelerometer_bridge/internal/config"
	"github.com/relabs-tech/accelerometer_bridge/internal/display"
	"github.com/relabs-tech/accelerometer_bridge/internal/platform"
	"github.com/relabs-tech/accelerometer_bridge/internal/plugin"
	"github.com/relabs-tech/accelerometer_bridge/internal/sensors"
	"github.com/relabs-tech/accelerometer_bridge/internal/transport"
)

// Runtime is one assembled bridge process.
type Runtime struct {
	Host     *plugin.Host
	Bridge   *bridge.Bridge
	Registry *prometheus.Registry
	Router   *transport.Router

	client  mqtt.Client
	display *display.Display
	closers []func()
	log     zerolog.Logger
}

// Build wires the sensor source, bridge, plugin host and outer surfaces
// described by cfg without starting anything.
func Build(cfg *config.Config, version string, log zerolog.Logger) (*Runtime, error) {
	rt := &Runtime{
		Registry: prometheus.NewRegistry(),
		log:      log,
	}
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.MQTT.Broker != "" {
		client, err := transport.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			return nil, fmt.Errorf("MQTT connect error: %w", err)
		}
		rt.client = client
		rt.closers = append(rt.closers, func() { client.Disconnect(250) })
		log.Info().Str("broker", cfg.MQTT.Broker).Msg("connected to MQTT broker")
	}

	svc, err := rt.sensorService(cfg.Sensor, cfg.MQTT)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rate, err := platform.ParseRateTier(cfg.Sensor.Rate)
	if err != nil {
		rt.Close()
		return nil, err
	}

	listeners := plugin.NewListeners()
	rt.Bridge = bridge.New(svc,
		bridge.WithRate(rate),
		bridge.WithNotifier(listeners),
		bridge.WithMetrics(bridge.NewMetrics(rt.Registry)),
		bridge.WithLogger(log.With().Str("component", "bridge").Logger()),
	)

	rt.Host = plugin.NewHost(log.With().Str("component", "host").Logger())
	if err := rt.Host.Register(plugin.NewAccelerometer(rt.Bridge, listeners, version)); err != nil {
		rt.Close()
		return nil, err
	}

	if cfg.MQTT.MeasurementTopic != "" {
		pub := transport.NewPublisher(rt.client, cfg.MQTT.MeasurementTopic, log)
		pub.Attach(listeners)
		log.Info().Str("topic", cfg.MQTT.MeasurementTopic).Msg("publishing measurements")
	}

	if cfg.Display.Enabled {
		interval := time.Duration(cfg.Display.UpdateInterval) * time.Millisecond
		d, err := display.Open(cfg.Display.I2CBus, interval, rt.Bridge, log.With().Str("component", "display").Logger())
		if err != nil {
			// same policy as a missing sensor: keep serving without it
			log.Warn().Err(err).Msg("display not available")
		} else {
			rt.display = d
		}
	}

	rt.Router = transport.NewRouter(rt.Host, rt.Registry, log.With().Str("component", "http").Logger())
	return rt, nil
}

func (rt *Runtime) sensorService(sc config.SensorConfig, mc config.MQTTConfig) (platform.SensorService, error) {
	log := rt.log.With().Str("source", sc.Source).Logger()

	switch sc.Source {
	case config.SourceMock:
		svc := sensors.NewMockService(sensors.MockOptions{Absent: sc.MockAbsent, CrossTalk: sc.MockCrossTalk}, log)
		rt.closers = append(rt.closers, svc.Close)
		return svc, nil
	case config.SourceMPU9250:
		svc := sensors.NewMPU9250Service(sensors.MPU9250Config{
			SPIDevice:  sc.SPIDevice,
			CSPin:      sc.CSPin,
			AccelRange: sc.AccelRange,
		}, log)
		rt.closers = append(rt.closers, svc.Close)
		return svc, nil
	case config.SourceMQTT:
		if rt.client == nil {
			return nil, fmt.Errorf("sensor source %q needs an MQTT connection", sc.Source)
		}
		return sensors.NewMQTTService(rt.client, mc.SampleTopic, log), nil
	default:
		return nil, fmt.Errorf("unknown sensor source: %s", sc.Source)
	}
}

// Run serves until ctx is cancelled, then destroys the plugins.
func (rt *Runtime) Run(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTSTP, syscall.SIGCONT)
	defer signal.Stop(sig)
	go forwardLifecycle(ctx, sig, rt.Host, rt.log)

	if rt.display != nil {
		go rt.display.Run(ctx)
	}

	err := rt.Router.Start(ctx, addr)

	rt.log.Info().Msg("shutting down")
	rt.Host.Destroy()
	return err
}

// Close releases hardware and connections. Safe after a failed Build.
func (rt *Runtime) Close() {
	if rt.display != nil {
		if err := rt.display.Close(); err != nil {
			rt.log.Warn().Err(err).Msg("error closing display")
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

type lifecycle interface {
	Pause()
	Resume()
}

// forwardLifecycle maps job-control signals onto the plugin lifecycle:
// SIGTSTP pauses, SIGCONT resumes.
func forwardLifecycle(ctx context.Context, sig <-chan os.Signal, lc lifecycle, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-sig:
			switch s {
			case syscall.SIGTSTP:
				log.Info().Msg("pausing plugins")
				lc.Pause()
			case syscall.SIGCONT:
				log.Info().Msg("resuming plugins")
				lc.Resume()
			}
		}
	}
}

// RunServe builds and runs the bridge process for cfg.
func RunServe(ctx context.Context, cfg *config.Config, version string, log zerolog.Logger) error {
	rt, err := Build(cfg, version, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	return rt.Run(ctx, cfg.HTTP.Addr)
}
