package sensors

import (
	"encoding/json"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/accelerometer_bridge/internal/platform"
)

// MQTTService receives raw samples from a remote producer over MQTT. The
// producer publishes platform.RawEvent JSON on the sample topic.
// Registering a listener subscribes; unregistering unsubscribes.
type MQTTService struct {
	client mqtt.Client
	topic  string
	sensor platform.Sensor
	log    zerolog.Logger

	mu       sync.Mutex
	listener platform.Listener
}

func NewMQTTService(client mqtt.Client, topic string, log zerolog.Logger) *MQTTService {
	return &MQTTService{
		client: client,
		topic:  topic,
		sensor: platform.Sensor{
			Name:   "remote accelerometer (" + topic + ")",
			Vendor: "mqtt",
			Type:   platform.TypeAccelerometer,
		},
		log: log.With().Str("source", "mqtt").Str("topic", topic).Logger(),
	}
}

// DefaultSensor reports the remote accelerometer as present while the
// broker connection is open.
func (s *MQTTService) DefaultSensor(t platform.SensorType) (platform.Sensor, bool) {
	if t != platform.TypeAccelerometer || !s.client.IsConnectionOpen() {
		return platform.Sensor{}, false
	}
	return s.sensor, true
}

// RegisterListener subscribes to the sample topic. The rate tier is
// decided by the remote producer and only logged here.
func (s *MQTTService) RegisterListener(l platform.Listener, _ platform.Sensor, rate platform.RateTier) error {
	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: listener already registered", platform.ErrRegistrationRefused)
	}
	s.listener = l
	s.mu.Unlock()

	// mu is never held while waiting on a token.
	token := s.client.Subscribe(s.topic, 0, s.handle)
	if token.Wait() && token.Error() != nil {
		s.mu.Lock()
		s.listener = nil
		s.mu.Unlock()
		return fmt.Errorf("%w: subscribe %s: %w", platform.ErrRegistrationRefused, s.topic, token.Error())
	}

	s.log.Info().Str("rate", rate.String()).Msg("subscribed to samples")
	return nil
}

func (s *MQTTService) UnregisterListener(l platform.Listener) error {
	s.mu.Lock()
	if s.listener == nil || s.listener != l {
		s.mu.Unlock()
		return platform.ErrNotRegistered
	}
	s.listener = nil
	s.mu.Unlock()

	if token := s.client.Unsubscribe(s.topic); token.Wait() && token.Error() != nil {
		return fmt.Errorf("unsubscribe %s: %w", s.topic, token.Error())
	}
	s.log.Info().Msg("unsubscribed from samples")
	return nil
}

func (s *MQTTService) handle(_ mqtt.Client, msg mqtt.Message) {
	var ev platform.RawEvent
	if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
		s.log.Warn().Err(err).Msg("sample unmarshal error")
		return
	}

	s.mu.Lock()
	target := s.listener
	s.mu.Unlock()

	if target != nil {
		target.OnSensorChanged(ev)
	}
}
