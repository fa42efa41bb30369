package accel

import (
	"math"
	"testing"

	"github.com/matryer/is"
)

func TestFromRawDividesByStandardGravity(t *testing.T) {
	is := is.New(t)

	m := FromRaw([3]float64{9.80665, -19.6133, 0})

	is.True(math.Abs(m.X-1) < 1e-12) // x should be 1g
	is.True(math.Abs(m.Y+2) < 1e-12) // y should be -2g
	is.Equal(m.Z, 0.0)               // z should be zero
}

func TestMagnitudeAtRest(t *testing.T) {
	is := is.New(t)

	m := Measurement{Z: 1}
	is.Equal(m.Magnitude(), 1.0)
}

func TestPayloadKeys(t *testing.T) {
	is := is.New(t)

	p := Measurement{X: 0.5, Y: -0.25, Z: 1}.Payload()
	is.Equal(p["x"], 0.5)
	is.Equal(p["y"], -0.25)
	is.Equal(p["z"], 1.0)
}
