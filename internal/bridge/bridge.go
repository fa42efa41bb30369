// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bridge owns the connection to a single accelerometer and
// republishes every accepted sample as a normalized measurement event.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/accelerometer_bridge/internal/accel"
	"github.com/relabs-tech/accelerometer_bridge/internal/platform"
)

// EventMeasurement is the event channel every accepted sample is pushed on.
const EventMeasurement = "measurement"

var (
	ErrSensorUnavailable  = errors.New("accelerometer sensor not available")
	ErrRegistrationFailed = errors.New("failed to register accelerometer listener")
)

// Notifier fans an event out to the application-side listeners.
type Notifier interface {
	Notify(event string, payload map[string]any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, map[string]any) {}

// Bridge connects one platform accelerometer to the application runtime.
type Bridge struct {
	service  platform.SensorService
	sensor   platform.Sensor
	present  bool
	rate     platform.RateTier
	notifier Notifier
	perms    Permissions
	metrics  *Metrics
	log      zerolog.Logger

	// regMu guards the registration state. It is never taken on the
	// ingestion path, so the platform may block in UnregisterListener
	// until an in-flight delivery returns.
	regMu         sync.Mutex
	updatesActive bool
	registered    bool
	paused        bool

	mu   sync.Mutex
	last accel.Measurement
}

// Option configures a Bridge.
type Option func(*Bridge)

func WithNotifier(n Notifier) Option {
	return func(b *Bridge) { b.notifier = n }
}

func WithPermissions(p Permissions) Option {
	return func(b *Bridge) { b.perms = p }
}

func WithMetrics(m *Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithRate overrides the sampling tier used on registration. Defaults to
// platform.RateGame.
func WithRate(r platform.RateTier) Option {
	return func(b *Bridge) { b.rate = r }
}

// New queries the service for its default accelerometer. A missing sensor
// is not an error: the bridge is returned and reports unavailability.
func New(service platform.SensorService, opts ...Option) *Bridge {
	b := &Bridge{
		service:  service,
		rate:     platform.RateGame,
		notifier: nopNotifier{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = NewMetrics(nil)
	}

	b.sensor, b.present = service.DefaultSensor(platform.TypeAccelerometer)
	if b.perms == nil {
		b.perms = PresencePermissions(b.present)
	}

	if b.present {
		b.log.Info().Str("sensor", b.sensor.Name).Str("vendor", b.sensor.Vendor).Msg("accelerometer found")
	} else {
		b.log.Warn().Msg("no accelerometer on this device")
	}
	return b
}

// IsAvailable reports whether the device has an accelerometer.
func (b *Bridge) IsAvailable() bool {
	return b.present
}

// Measurement returns a copy of the last observed sample, or the zero
// measurement if none has arrived yet.
func (b *Bridge) Measurement() (accel.Measurement, error) {
	if !b.present {
		return accel.Measurement{}, ErrSensorUnavailable
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, nil
}

// UpdatesActive reports whether the caller has asked for continuous updates.
func (b *Bridge) UpdatesActive() bool {
	b.regMu.Lock()
	defer b.regMu.Unlock()
	return b.updatesActive
}

// StartUpdates registers with the sensor service at the configured tier.
// It is a no-op when updates are already active and delivering, or when
// the host is paused (Resume registers then). Active updates that lost
// their registration to a refused Resume are registered again.
func (b *Bridge) StartUpdates() error {
	if !b.present {
		return ErrSensorUnavailable
	}

	b.regMu.Lock()
	defer b.regMu.Unlock()

	if b.updatesActive && (b.registered || b.paused) {
		return nil
	}
	if err := b.register(); err != nil {
		return fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	b.updatesActive = true
	b.metrics.UpdatesActive.Set(1)
	return nil
}

// StopUpdates unregisters the listener if updates are active. It never
// fails: an unregistration error is logged and dropped.
func (b *Bridge) StopUpdates() {
	b.regMu.Lock()
	defer b.regMu.Unlock()

	if !b.updatesActive {
		return
	}
	if b.registered {
		b.unregister()
	}
	b.updatesActive = false
	b.metrics.UpdatesActive.Set(0)
}

// CheckPermissions reports the accelerometer permission without prompting.
func (b *Bridge) CheckPermissions(ctx context.Context) PermissionState {
	return b.perms.Check(ctx)
}

// RequestPermissions runs the permission flow of the configured capability.
func (b *Bridge) RequestPermissions(ctx context.Context) PermissionState {
	return b.perms.Request(ctx)
}

// Pause suspends delivery while keeping the intent to receive updates.
func (b *Bridge) Pause() {
	b.regMu.Lock()
	defer b.regMu.Unlock()

	b.paused = true
	if b.updatesActive && b.registered {
		b.unregister()
		b.log.Debug().Msg("updates suspended")
	}
}

// Resume re-arms delivery after Pause if updates are still wanted.
func (b *Bridge) Resume() {
	b.regMu.Lock()
	defer b.regMu.Unlock()

	b.paused = false
	if !b.updatesActive || !b.present || b.registered {
		return
	}
	if err := b.register(); err != nil {
		b.log.Error().Err(err).Msg("failed to re-register accelerometer listener on resume")
		return
	}
	b.log.Debug().Msg("updates resumed")
}

// Destroy releases any live registration and discards the bridge state.
func (b *Bridge) Destroy() {
	b.regMu.Lock()
	if b.registered {
		b.unregister()
	}
	b.updatesActive = false
	b.paused = false
	b.metrics.UpdatesActive.Set(0)
	b.regMu.Unlock()

	b.mu.Lock()
	b.last = accel.Measurement{}
	b.mu.Unlock()
}

// OnSensorChanged ingests a raw platform sample. Events from other sensor
// types are dropped.
func (b *Bridge) OnSensorChanged(ev platform.RawEvent) {
	if ev.Type != platform.TypeAccelerometer {
		b.metrics.SamplesDiscarded.Inc()
		return
	}

	m := accel.FromRaw(ev.Values)

	b.mu.Lock()
	b.last = m
	b.mu.Unlock()

	b.metrics.SamplesAccepted.Inc()
	b.notifier.Notify(EventMeasurement, m.Payload())
	b.metrics.Notifications.Inc()
}

// register and unregister must be called with regMu held.
func (b *Bridge) register() error {
	if err := b.service.RegisterListener(b, b.sensor, b.rate); err != nil {
		b.metrics.RegistrationFailures.Inc()
		b.log.Error().Err(err).Str("rate", b.rate.String()).Msg("sensor service refused listener")
		return err
	}
	b.registered = true
	b.metrics.Registrations.Inc()
	return nil
}

func (b *Bridge) unregister() {
	if err := b.service.UnregisterListener(b); err != nil {
		b.log.Warn().Err(err).Msg("failed to unregister accelerometer listener")
	}
	b.registered = false
}
