// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package platform describes the sensor service a host platform offers to
// the bridge: sensor discovery, listener registration at a rate tier and
// asynchronous delivery of raw samples tagged by sensor type.
package platform

import (
	"errors"
	"fmt"
	"time"
)

// SensorType tags every raw event with the kind of sensor that produced it.
type SensorType string

const (
	TypeAccelerometer SensorType = "accelerometer"
	TypeGyroscope     SensorType = "gyroscope"
	TypeMagnetometer  SensorType = "magnetometer"
)

// RateTier selects how often a registered listener receives samples.
type RateTier int

const (
	RateNormal RateTier = iota
	RateUI
	RateGame
	RateFastest
)

// Interval returns the polling interval for the tier. RateFastest maps to
// the shortest interval the sources support.
func (r RateTier) Interval() time.Duration {
	switch r {
	case RateNormal:
		return 200 * time.Millisecond
	case RateUI:
		return 60 * time.Millisecond
	case RateGame:
		return 20 * time.Millisecond
	default:
		return time.Millisecond
	}
}

func (r RateTier) String() string {
	switch r {
	case RateNormal:
		return "normal"
	case RateUI:
		return "ui"
	case RateGame:
		return "game"
	case RateFastest:
		return "fastest"
	}
	return "unknown"
}

// Sensor describes a hardware sensor exposed by the platform.
type Sensor struct {
	Name       string     `json:"name"`
	Vendor     string     `json:"vendor"`
	Type       SensorType `json:"type"`
	MaxRange   float64    `json:"max_range"`  // m/s²
	Resolution float64    `json:"resolution"` // m/s² per LSB
}

// RawEvent is one sample as delivered by the platform, in platform units
// (m/s² for accelerometers).
type RawEvent struct {
	Type      SensorType `json:"type"`
	Values    [3]float64 `json:"values"`
	Timestamp time.Time  `json:"timestamp"`
}

// Listener receives raw events from the sensor service.
type Listener interface {
	OnSensorChanged(ev RawEvent)
}

// SensorService is the platform collaborator the bridge registers with.
type SensorService interface {
	DefaultSensor(t SensorType) (Sensor, bool)
	RegisterListener(l Listener, s Sensor, rate RateTier) error
	UnregisterListener(l Listener) error
}

var (
	ErrRegistrationRefused = errors.New("listener registration refused")
	ErrNotRegistered       = errors.New("listener not registered")
)

// ParseRateTier is the inverse of RateTier.String.
func ParseRateTier(s string) (RateTier, error) {
	for _, r := range []RateTier{RateNormal, RateUI, RateGame, RateFastest} {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rate tier %q", s)
}
