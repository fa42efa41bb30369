package plugin

import (
	"context"
	"sync"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/accelerometer_bridge/internal/bridge"
	"github.com/relabs-tech/accelerometer_bridge/internal/platform"
)

type stubService struct {
	mu          sync.Mutex
	present     bool
	refuse      bool
	listener    platform.Listener
	registers   int
	unregisters int
}

func (s *stubService) DefaultSensor(platform.SensorType) (platform.Sensor, bool) {
	return platform.Sensor{Name: "stub", Type: platform.TypeAccelerometer}, s.present
}

func (s *stubService) RegisterListener(l platform.Listener, _ platform.Sensor, _ platform.RateTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuse {
		return platform.ErrRegistrationRefused
	}
	s.registers++
	s.listener = l
	return nil
}

func (s *stubService) UnregisterListener(platform.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregisters++
	s.listener = nil
	return nil
}

func (s *stubService) emit(x, y, z float64) {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		l.OnSensorChanged(platform.RawEvent{Type: platform.TypeAccelerometer, Values: [3]float64{x, y, z}})
	}
}

func newTestHost(svc *stubService) (*Host, *Accelerometer) {
	ls := NewListeners()
	b := bridge.New(svc, bridge.WithNotifier(ls))
	a := NewAccelerometer(b, ls, "1.2.3")

	h := NewHost(zerolog.Nop())
	_ = h.Register(a)
	return h, a
}

func call(h *Host, method string) Result {
	return h.Dispatch(context.Background(), AccelerometerName, Call{Method: method})
}

func TestGetMeasurementRejectsWithoutSensor(t *testing.T) {
	is := is.New(t)
	h, _ := newTestHost(&stubService{present: false})

	res := call(h, "getMeasurement")
	is.True(!res.OK())
	is.Equal(res.Error, "Accelerometer sensor not available on this device.")

	res = call(h, "startMeasurementUpdates")
	is.Equal(res.Error, "Accelerometer sensor not available on this device.")
}

func TestIsAvailable(t *testing.T) {
	is := is.New(t)

	h, _ := newTestHost(&stubService{present: true})
	is.Equal(call(h, "isAvailable").Data["isAvailable"], true)

	h, _ = newTestHost(&stubService{present: false})
	is.Equal(call(h, "isAvailable").Data["isAvailable"], false)
}

func TestStartRejectsWhenRegistrationRefused(t *testing.T) {
	is := is.New(t)
	h, _ := newTestHost(&stubService{present: true, refuse: true})

	res := call(h, "startMeasurementUpdates")
	is.Equal(res.Error, "Failed to register accelerometer listener.")
}

func TestMeasurementEventsReachListeners(t *testing.T) {
	is := is.New(t)
	svc := &stubService{present: true}
	h, a := newTestHost(svc)

	var got []map[string]any
	a.Listeners().Add(bridge.EventMeasurement, func(p map[string]any) {
		got = append(got, p)
	})

	is.True(call(h, "startMeasurementUpdates").OK())
	svc.emit(0, 0, 9.80665)

	is.Equal(len(got), 1)
	is.Equal(got[0]["z"], 1.0)

	res := call(h, "getMeasurement")
	is.True(res.OK())
	is.Equal(res.Data["z"], 1.0)

	is.True(call(h, "stopMeasurementUpdates").OK())
	svc.emit(1, 1, 1)
	is.Equal(len(got), 1) // nothing after stop
}

func TestRemoveAllListeners(t *testing.T) {
	is := is.New(t)
	svc := &stubService{present: true}
	h, a := newTestHost(svc)

	calls := 0
	a.Listeners().Add(bridge.EventMeasurement, func(map[string]any) { calls++ })
	a.Listeners().Add(bridge.EventMeasurement, func(map[string]any) { calls++ })
	is.Equal(a.Listeners().Count(bridge.EventMeasurement), 2)

	is.True(call(h, "removeAllListeners").OK())
	is.Equal(a.Listeners().Count(bridge.EventMeasurement), 0)

	is.True(call(h, "startMeasurementUpdates").OK())
	svc.emit(1, 2, 3)
	is.Equal(calls, 0)
}

func TestPermissionsMethods(t *testing.T) {
	is := is.New(t)

	h, _ := newTestHost(&stubService{present: true})
	is.Equal(call(h, "checkPermissions").Data["accelerometer"], "granted")
	is.Equal(call(h, "requestPermissions").Data["accelerometer"], "granted")

	h, _ = newTestHost(&stubService{present: false})
	is.Equal(call(h, "checkPermissions").Data["accelerometer"], "denied")
}

func TestPluginVersion(t *testing.T) {
	is := is.New(t)
	h, _ := newTestHost(&stubService{present: true})

	is.Equal(call(h, "getPluginVersion").Data["version"], "1.2.3")
}

func TestUnknownMethodAndPlugin(t *testing.T) {
	is := is.New(t)
	h, _ := newTestHost(&stubService{present: true})

	is.True(!call(h, "calibrate").OK())

	res := h.Dispatch(context.Background(), "Camera", Call{Method: "getPhoto"})
	is.True(!res.OK())
}

func TestDuplicatePluginRegistration(t *testing.T) {
	is := is.New(t)
	h, a := newTestHost(&stubService{present: true})

	is.True(h.Register(a) != nil)
	is.Equal(h.Names(), []string{AccelerometerName})
}

func TestHostLifecycleReachesBridge(t *testing.T) {
	is := is.New(t)
	svc := &stubService{present: true}
	h, a := newTestHost(svc)
	a.Listeners().Add(bridge.EventMeasurement, func(map[string]any) {})

	is.True(call(h, "startMeasurementUpdates").OK())

	h.Pause()
	is.Equal(svc.unregisters, 1)
	h.Resume()
	is.Equal(svc.registers, 2)

	h.Destroy()
	is.Equal(svc.unregisters, 2)
	is.Equal(a.Listeners().Count(bridge.EventMeasurement), 0)
}

func TestHandleRemoveIsIdempotent(t *testing.T) {
	is := is.New(t)
	ls := NewListeners()

	h1 := ls.Add("measurement", func(map[string]any) {})
	ls.Add("measurement", func(map[string]any) {})

	h1.Remove()
	h1.Remove()
	is.Equal(ls.Count("measurement"), 1)
}

func TestListenersGetPrivateCopies(t *testing.T) {
	is := is.New(t)
	ls := NewListeners()

	ls.Add("measurement", func(p map[string]any) { p["x"] = 99.0 })
	var seen any
	ls.Add("measurement", func(p map[string]any) { seen = p["x"] })

	ls.Notify("measurement", map[string]any{"x": 1.0})
	is.Equal(seen, 1.0)
}
