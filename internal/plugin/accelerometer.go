package plugin

import (
	"context"
	"errors"

	"github.com/relabs-tech/accelerometer_bridge/internal/bridge"
)

// AccelerometerName is the name the accelerometer plugin is dispatched by.
const AccelerometerName = "Accelerometer"

const (
	msgUnavailable        = "Accelerometer sensor not available on this device."
	msgRegistrationFailed = "Failed to register accelerometer listener."
)

// Accelerometer binds the bridge operations to their remote method names.
type Accelerometer struct {
	bridge    *bridge.Bridge
	listeners *Listeners
	version   string
	methods   map[string]Method
}

// NewAccelerometer wraps b. listeners must be the notifier b was built
// with so that measurement events reach the subscribers of this plugin.
func NewAccelerometer(b *bridge.Bridge, listeners *Listeners, version string) *Accelerometer {
	a := &Accelerometer{bridge: b, listeners: listeners, version: version}
	a.methods = map[string]Method{
		"getMeasurement":          a.getMeasurement,
		"isAvailable":             a.isAvailable,
		"startMeasurementUpdates": a.startMeasurementUpdates,
		"stopMeasurementUpdates":  a.stopMeasurementUpdates,
		"checkPermissions":        a.checkPermissions,
		"requestPermissions":      a.requestPermissions,
		"removeAllListeners":      a.removeAllListeners,
		"getPluginVersion":        a.getPluginVersion,
	}
	return a
}

func (a *Accelerometer) Name() string               { return AccelerometerName }
func (a *Accelerometer) Methods() map[string]Method { return a.methods }
func (a *Accelerometer) Listeners() *Listeners      { return a.listeners }

func (a *Accelerometer) HandleOnPause()   { a.bridge.Pause() }
func (a *Accelerometer) HandleOnResume()  { a.bridge.Resume() }
func (a *Accelerometer) HandleOnDestroy() { a.bridge.Destroy() }

func (a *Accelerometer) getMeasurement(context.Context, Call) Result {
	m, err := a.bridge.Measurement()
	if err != nil {
		return rejectErr(err)
	}
	return Resolve(m.Payload())
}

func (a *Accelerometer) isAvailable(context.Context, Call) Result {
	return Resolve(map[string]any{"isAvailable": a.bridge.IsAvailable()})
}

func (a *Accelerometer) startMeasurementUpdates(context.Context, Call) Result {
	if err := a.bridge.StartUpdates(); err != nil {
		return rejectErr(err)
	}
	return Resolve(nil)
}

func (a *Accelerometer) stopMeasurementUpdates(context.Context, Call) Result {
	a.bridge.StopUpdates()
	return Resolve(nil)
}

func (a *Accelerometer) checkPermissions(ctx context.Context, _ Call) Result {
	return permissionResult(a.bridge.CheckPermissions(ctx))
}

func (a *Accelerometer) requestPermissions(ctx context.Context, _ Call) Result {
	return permissionResult(a.bridge.RequestPermissions(ctx))
}

func (a *Accelerometer) removeAllListeners(context.Context, Call) Result {
	a.listeners.RemoveAll()
	return Resolve(nil)
}

func (a *Accelerometer) getPluginVersion(context.Context, Call) Result {
	return Resolve(map[string]any{"version": a.version})
}

func permissionResult(state bridge.PermissionState) Result {
	return Resolve(map[string]any{"accelerometer": string(state)})
}

func rejectErr(err error) Result {
	switch {
	case errors.Is(err, bridge.ErrSensorUnavailable):
		return Reject(msgUnavailable)
	case errors.Is(err, bridge.ErrRegistrationFailed):
		return Reject(msgRegistrationFailed)
	}
	return Reject(err.Error())
}
