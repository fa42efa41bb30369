// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package accel

import "math"

// StandardGravity is the standard acceleration of free fall in m/s².
const StandardGravity = 9.80665

// Measurement is a single accelerometer reading expressed as a multiple of
// standard gravity. All three axes always come from the same sensor event.
type Measurement struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FromRaw converts a raw triple in m/s² into a Measurement in g.
func FromRaw(values [3]float64) Measurement {
	return Measurement{
		X: values[0] / StandardGravity,
		Y: values[1] / StandardGravity,
		Z: values[2] / StandardGravity,
	}
}

// Magnitude returns the length of the acceleration vector in g.
func (m Measurement) Magnitude() float64 {
	return math.Sqrt(m.X*m.X + m.Y*m.Y + m.Z*m.Z)
}

// Payload renders the measurement the way plugin calls and events carry it.
func (m Measurement) Payload() map[string]any {
	return map[string]any{
		"x": m.X,
		"y": m.Y,
		"z": m.Z,
	}
}
