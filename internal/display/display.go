// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display mirrors the cached measurement on an SSD1306 OLED.
package display

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/accelerometer_bridge/internal/accel"
	"github.com/relabs-tech/accelerometer_bridge/internal/orientation"
)

const (
	width  = 128
	height = 64
)

// Source is read on every refresh.
type Source interface {
	Measurement() (accel.Measurement, error)
}

type Display struct {
	bus      i2c.BusCloser
	dev      *ssd1306.Dev
	src      Source
	interval time.Duration
	log      zerolog.Logger
}

// Open initializes periph and the panel on the named I2C bus.
func Open(busName string, interval time.Duration, src Source, log zerolog.Logger) (*Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Info().Str("bus", busName).Msg("display initialized")

	d := &Display{bus: bus, dev: dev, src: src, interval: interval, log: log}
	if err := dev.Draw(dev.Bounds(), Splash(), image.Point{}); err != nil {
		log.Warn().Err(err).Msg("error showing splash")
	}
	return d, nil
}

// Run refreshes the panel until ctx is cancelled.
func (d *Display) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Debug().Dur("interval", d.interval).Msg("starting update loop")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m, err := d.src.Measurement()
			img := Render(m, err == nil)
			if err := d.dev.Draw(d.dev.Bounds(), img, image.Point{}); err != nil {
				d.log.Warn().Err(err).Msg("error updating display")
			}
		}
	}
}

// Close blanks the panel and releases the bus.
func (d *Display) Close() error {
	if err := d.dev.Halt(); err != nil {
		d.log.Warn().Err(err).Msg("error halting display")
	}
	return d.bus.Close()
}

// Render draws one frame: the three axes in g followed by the tilt they
// imply. ok=false renders the no-sensor screen.
func Render(m accel.Measurement, ok bool) *image1bit.VerticalLSB {
	img, drawer := blank()

	if !ok {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Accelerometer"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("not available"))
		return img
	}

	tilt := orientation.FromMeasurement(m)

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte(fmt.Sprintf("X: %+7.3f g", m.X)))

	drawer.Dot = fixed.P(0, 26)
	drawer.DrawBytes([]byte(fmt.Sprintf("Y: %+7.3f g", m.Y)))

	drawer.Dot = fixed.P(0, 39)
	drawer.DrawBytes([]byte(fmt.Sprintf("Z: %+7.3f g", m.Z)))

	drawer.Dot = fixed.P(0, 52)
	drawer.DrawBytes([]byte(fmt.Sprintf("R%6.1f P%6.1f", tilt.Roll, tilt.Pitch)))

	return img
}

func Splash() *image1bit.VerticalLSB {
	img, drawer := blank()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Accelerometer"))

	drawer.Dot = fixed.P(30, 43)
	drawer.DrawBytes([]byte("bridge"))

	return img
}

func blank() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}
