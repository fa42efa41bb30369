package bridge

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts what flows through the bridge.
type Metrics struct {
	SamplesAccepted      prometheus.Counter
	SamplesDiscarded     prometheus.Counter
	Registrations        prometheus.Counter
	RegistrationFailures prometheus.Counter
	Notifications        prometheus.Counter
	UpdatesActive        prometheus.Gauge
}

// NewMetrics creates the bridge collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SamplesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accel_samples_accepted_total",
			Help: "Accelerometer samples normalized and cached.",
		}),
		SamplesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accel_samples_discarded_total",
			Help: "Events dropped because they came from another sensor type.",
		}),
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accel_listener_registrations_total",
			Help: "Successful listener registrations with the sensor service.",
		}),
		RegistrationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accel_listener_registration_failures_total",
			Help: "Listener registrations refused by the sensor service.",
		}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accel_notifications_total",
			Help: "Measurement events emitted to application listeners.",
		}),
		UpdatesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "accel_updates_active",
			Help: "1 while continuous updates are requested.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SamplesAccepted,
			m.SamplesDiscarded,
			m.Registrations,
			m.RegistrationFailures,
			m.Notifications,
			m.UpdatesActive,
		)
	}
	return m
}
