package orientation

import (
	"math"

	"github.com/relabs-tech/accelerometer_bridge/internal/accel"
)

// Tilt is the attitude implied by the gravity vector alone, in degrees.
type Tilt struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// FromAccel computes roll and pitch from accelerometer data only. Units
// cancel, so raw m/s² and normalized g give the same answer.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func FromAccel(ax, ay, az float64) Tilt {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Tilt{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}

// FromMeasurement is FromAccel for a bridge measurement.
func FromMeasurement(m accel.Measurement) Tilt {
	return FromAccel(m.X, m.Y, m.Z)
}
