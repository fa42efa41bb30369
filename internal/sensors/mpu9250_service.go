// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/accelerometer_bridge/internal/accel"
	"github.com/relabs-tech/accelerometer_bridge/internal/platform"
)

// MPU9250Config selects the SPI wiring and full-scale range of the IMU.
type MPU9250Config struct {
	SPIDevice string
	CSPin     string
	// AccelRange: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	AccelRange byte
}

// MPU9250Service exposes the accelerometer of an MPU-9250 on SPI as a
// sensor service. A device that cannot be initialized is reported as
// absent rather than failing construction.
type MPU9250Service struct {
	cfg    MPU9250Config
	imu    *mpu9250.MPU9250
	poller *Poller
	log    zerolog.Logger
}

// countsPerG returns the accelerometer sensitivity for a range setting.
func countsPerG(rangeSel byte) float64 {
	return float64(int(16384) >> rangeSel)
}

func NewMPU9250Service(cfg MPU9250Config, log zerolog.Logger) *MPU9250Service {
	s := &MPU9250Service{
		cfg: cfg,
		log: log.With().Str("source", "mpu9250").Str("spi", cfg.SPIDevice).Logger(),
	}

	imu, err := openMPU9250(cfg)
	if err != nil {
		s.log.Warn().Err(err).Msg("IMU unavailable")
		return s
	}
	s.imu = imu
	s.poller = NewPoller(s.read, s.log)
	s.log.Info().Int("range_g", 2<<cfg.AccelRange).Msg("IMU initialized")
	return s
}

func openMPU9250(cfg MPU9250Config) (*mpu9250.MPU9250, error) {
	if cfg.AccelRange > 3 {
		return nil, fmt.Errorf("IMU: accel range %d out of bounds", cfg.AccelRange)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(cfg.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", cfg.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(cfg.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", cfg.SPIDevice, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}
	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}
	if err := imu.SetAccelRange(cfg.AccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	return imu, nil
}

func (s *MPU9250Service) DefaultSensor(t platform.SensorType) (platform.Sensor, bool) {
	if s.imu == nil || t != platform.TypeAccelerometer {
		return platform.Sensor{}, false
	}
	return platform.Sensor{
		Name:       "MPU-9250 accelerometer",
		Vendor:     "InvenSense",
		Type:       platform.TypeAccelerometer,
		MaxRange:   float64(int(2)<<s.cfg.AccelRange) * accel.StandardGravity,
		Resolution: accel.StandardGravity / countsPerG(s.cfg.AccelRange),
	}, true
}

func (s *MPU9250Service) RegisterListener(l platform.Listener, sensor platform.Sensor, rate platform.RateTier) error {
	if s.poller == nil || sensor.Type != platform.TypeAccelerometer {
		return platform.ErrRegistrationRefused
	}
	return s.poller.Register(l, rate)
}

func (s *MPU9250Service) UnregisterListener(l platform.Listener) error {
	if s.poller == nil {
		return platform.ErrNotRegistered
	}
	return s.poller.Unregister(l)
}

// Close stops all delivery.
func (s *MPU9250Service) Close() {
	if s.poller != nil {
		s.poller.Close()
	}
}

// read samples the three accelerometer axes and converts counts to m/s².
func (s *MPU9250Service) read() (platform.RawEvent, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return platform.RawEvent{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return platform.RawEvent{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return platform.RawEvent{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	return platform.RawEvent{
		Type:      platform.TypeAccelerometer,
		Values:    countsToMS2([3]int16{ax, ay, az}, s.cfg.AccelRange),
		Timestamp: time.Now(),
	}, nil
}

func countsToMS2(counts [3]int16, rangeSel byte) [3]float64 {
	scale := accel.StandardGravity / countsPerG(rangeSel)
	return [3]float64{
		float64(counts[0]) * scale,
		float64(counts[1]) * scale,
		float64(counts[2]) * scale,
	}
}
