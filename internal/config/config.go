// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/accelerometer_bridge/internal/platform"
)

// EnvPath overrides the configuration file path when set.
const EnvPath = "ACCEL_BRIDGE_CONFIG"

// Sensor sources.
const (
	SourceMPU9250 = "mpu9250"
	SourceMock    = "mock"
	SourceMQTT    = "mqtt"
)

// Config holds all application configuration values.
type Config struct {
	Sensor  SensorConfig  `yaml:"sensor"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
	Display DisplayConfig `yaml:"display"`
	Log     LogConfig     `yaml:"log"`
}

type SensorConfig struct {
	Source string `yaml:"source"` // mpu9250, mock or mqtt
	// Rate is the delivery tier: normal, ui, game or fastest.
	Rate string `yaml:"rate"`

	// IMU hardware
	SPIDevice string `yaml:"spi_device"`
	CSPin     string `yaml:"cs_pin"`
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	AccelRange byte `yaml:"accel_range"`

	// Mock source
	MockAbsent    bool `yaml:"mock_absent"`
	MockCrossTalk bool `yaml:"mock_cross_talk"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`

	// SampleTopic carries raw events when the sensor source is mqtt.
	SampleTopic string `yaml:"sample_topic"`
	// MeasurementTopic receives every normalized measurement. Empty
	// disables publishing.
	MeasurementTopic string `yaml:"measurement_topic"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DisplayConfig struct {
	Enabled bool   `yaml:"enabled"`
	I2CBus  string `yaml:"i2c_bus"`
	// Interval between refreshes, milliseconds.
	UpdateInterval int `yaml:"update_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads and validates the YAML configuration file at configPath.
func Load(configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document, applies defaults and validates it.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file exists: the mock
// source on the default HTTP address.
func Default() *Config {
	cfg := &Config{Sensor: SensorConfig{Source: SourceMock}}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Sensor.Source == "" {
		c.Sensor.Source = SourceMPU9250
	}
	if c.Sensor.Rate == "" {
		c.Sensor.Rate = platform.RateGame.String()
	}
	if c.Sensor.SPIDevice == "" {
		c.Sensor.SPIDevice = "/dev/spidev0.0"
	}
	if c.Sensor.CSPin == "" {
		c.Sensor.CSPin = "8"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "accelerometer-bridge"
	}
	if c.MQTT.SampleTopic == "" {
		c.MQTT.SampleTopic = "accelerometer/raw"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Display.I2CBus == "" {
		c.Display.I2CBus = "1"
	}
	if c.Display.UpdateInterval == 0 {
		c.Display.UpdateInterval = 200
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	switch c.Sensor.Source {
	case SourceMPU9250, SourceMock:
	case SourceMQTT:
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required for sensor source %q", SourceMQTT)
		}
	default:
		return fmt.Errorf("sensor.source must be one of %s, %s, %s, got %q",
			SourceMPU9250, SourceMock, SourceMQTT, c.Sensor.Source)
	}
	if _, err := platform.ParseRateTier(c.Sensor.Rate); err != nil {
		return fmt.Errorf("sensor.rate: %w", err)
	}
	if c.Sensor.AccelRange > 3 {
		return fmt.Errorf("sensor.accel_range must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", c.Sensor.AccelRange)
	}
	if c.MQTT.MeasurementTopic != "" && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required to publish measurements")
	}
	if c.Display.UpdateInterval < 0 {
		return fmt.Errorf("display.update_interval must be positive, got %d", c.Display.UpdateInterval)
	}
	return nil
}

// Path returns the config path to use: the environment override if set,
// else fallback.
func Path(fallback string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return fallback
}
