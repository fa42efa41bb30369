// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/accelerometer_bridge/internal/accel"
	"github.com/relabs-tech/accelerometer_bridge/internal/platform"
)

// MockOptions shapes the synthetic device.
type MockOptions struct {
	// Absent makes the service report no accelerometer.
	Absent bool
	// CrossTalk interleaves gyroscope events with the accelerometer
	// stream, one in every four.
	CrossTalk bool
}

// MockService is a sensor service backed by synthesized motion: a gentle
// wobble on X and Y with gravity on Z.
type MockService struct {
	opts   MockOptions
	start  time.Time
	poller *Poller

	mu sync.Mutex
	n  int
}

func NewMockService(opts MockOptions, log zerolog.Logger) *MockService {
	m := &MockService{opts: opts, start: time.Now()}
	m.poller = NewPoller(m.next, log.With().Str("source", "mock").Logger())
	return m
}

func (m *MockService) DefaultSensor(t platform.SensorType) (platform.Sensor, bool) {
	if m.opts.Absent || t != platform.TypeAccelerometer {
		return platform.Sensor{}, false
	}
	return platform.Sensor{
		Name:       "mock accelerometer",
		Vendor:     "relabs",
		Type:       platform.TypeAccelerometer,
		MaxRange:   4 * accel.StandardGravity,
		Resolution: accel.StandardGravity / 8192,
	}, true
}

func (m *MockService) RegisterListener(l platform.Listener, s platform.Sensor, rate platform.RateTier) error {
	if m.opts.Absent || s.Type != platform.TypeAccelerometer {
		return platform.ErrRegistrationRefused
	}
	return m.poller.Register(l, rate)
}

func (m *MockService) UnregisterListener(l platform.Listener) error {
	return m.poller.Unregister(l)
}

// Close stops all delivery.
func (m *MockService) Close() {
	m.poller.Close()
}

func (m *MockService) next() (platform.RawEvent, error) {
	now := time.Now()
	elapsed := now.Sub(m.start).Seconds()

	m.mu.Lock()
	m.n++
	n := m.n
	m.mu.Unlock()

	if m.opts.CrossTalk && n%4 == 0 {
		return platform.RawEvent{
			Type:      platform.TypeGyroscope,
			Values:    [3]float64{0.1 * math.Sin(elapsed), 0, 0},
			Timestamp: now,
		}, nil
	}

	return platform.RawEvent{
		Type: platform.TypeAccelerometer,
		Values: [3]float64{
			0.20 * accel.StandardGravity * math.Sin(elapsed),
			0.15 * accel.StandardGravity * math.Cos(elapsed*0.7),
			accel.StandardGravity,
		},
		Timestamp: now,
	}, nil
}
